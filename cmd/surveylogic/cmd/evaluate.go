package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/solatis/surveylogic/internal/logic"
	"github.com/solatis/surveylogic/internal/types"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate logic rules against answers offline",
	Long: `Reads a JSON document {"rules": [...], "answers": ..., "questions": [...]}
and prints the action of the first rule that fires, or null.
Answers may be a list of {questionId, answerValue} records or a
{questionId: value} object. Configuration warnings go to the log.`,
	Args: cobra.NoArgs,
	RunE: runEvaluate,
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Check logic rules for configuration problems",
	Long: `Reads a survey document ({"questions": [...], "logicRules": [...]}) or a
rule document ({"rules": [...], "questions": [...]}) and prints every
problem the engine would silently fail closed on. Exits non-zero when
any issue is found.`,
	Args: cobra.NoArgs,
	RunE: runLint,
}

func init() {
	rootCmd.AddCommand(evaluateCmd, lintCmd)
	for _, c := range []*cobra.Command{evaluateCmd, lintCmd} {
		c.Flags().StringP("input", "i", "-", "input JSON file (- for stdin)")
	}
	lintCmd.Flags().Bool("json", false, "print issues as JSON")
}

// ruleDocument is the input of evaluate and lint.
type ruleDocument struct {
	Rules      []types.LogicRule `json:"rules"`
	LogicRules []types.LogicRule `json:"logicRules"`
	Answers    logic.AnswerInput `json:"answers"`
	Questions  []types.Question  `json:"questions"`
}

func readDocument(cmd *cobra.Command, dst interface{}) error {
	path, _ := cmd.Flags().GetString("input")

	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	if err := json.NewDecoder(r).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode input: %w", err)
	}
	return nil
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}

	var doc ruleDocument
	if err := readDocument(cmd, &doc); err != nil {
		return err
	}

	rules := doc.Rules
	if rules == nil {
		rules = doc.LogicRules
	}

	result := logic.NewEngine(logger).Evaluate(rules, doc.Answers.Snapshot(), logic.IndexQuestions(doc.Questions))

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result.ActionOrNil())
}

func runLint(cmd *cobra.Command, args []string) error {
	var doc ruleDocument
	if err := readDocument(cmd, &doc); err != nil {
		return err
	}

	issues := logic.LintSurvey(&types.Survey{Questions: doc.Questions, LogicRules: doc.LogicRules})
	for _, issue := range logic.Lint(doc.Rules, doc.Questions) {
		issue.Scope = "rules"
		issues = append(issues, issue)
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		if issues == nil {
			issues = []logic.LintIssue{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(issues); err != nil {
			return err
		}
	} else {
		for _, issue := range issues {
			fmt.Fprintln(out, issue.String())
		}
	}

	if len(issues) > 0 {
		return fmt.Errorf("%w: %d issues", types.ErrInvalidRuleSet, len(issues))
	}
	return nil
}
