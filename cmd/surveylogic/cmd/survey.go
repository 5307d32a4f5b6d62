package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solatis/surveylogic/internal/logic"
	"github.com/solatis/surveylogic/internal/types"
)

var surveyCmd = &cobra.Command{
	Use:   "survey",
	Short: "Manage stored surveys",
}

var surveyImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Store a survey document",
	Long: `Reads a survey document ({"title", "questions", "logicRules"}), lints its
logic and stores it as a draft. Refuses surveys with lint issues unless
--force is given.`,
	Args: cobra.NoArgs,
	RunE: runSurveyImport,
}

var surveyActivateCmd = &cobra.Command{
	Use:   "activate <survey-id>",
	Short: "Open a survey for responses",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setSurveyStatus(cmd, types.SurveyID(args[0]), types.SurveyActive)
	},
}

var surveyCloseCmd = &cobra.Command{
	Use:   "close <survey-id>",
	Short: "Stop accepting responses for a survey",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setSurveyStatus(cmd, types.SurveyID(args[0]), types.SurveyClosed)
	},
}

func init() {
	rootCmd.AddCommand(surveyCmd)
	surveyCmd.AddCommand(surveyImportCmd, surveyActivateCmd, surveyCloseCmd)
	surveyImportCmd.Flags().StringP("input", "i", "-", "survey JSON file (- for stdin)")
	surveyImportCmd.Flags().Bool("force", false, "store the survey even when lint reports issues")
	surveyImportCmd.Flags().Bool("activate", false, "activate the survey after storing it")
}

func runSurveyImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	logger, err := newLogger()
	if err != nil {
		return err
	}

	var survey types.Survey
	if err := readDocument(cmd, &survey); err != nil {
		return err
	}
	if len(survey.Questions) == 0 {
		return types.ErrEmptySurvey
	}

	issues := logic.LintSurvey(&survey)
	for _, issue := range issues {
		fmt.Fprintln(cmd.ErrOrStderr(), issue.String())
	}
	if force, _ := cmd.Flags().GetBool("force"); len(issues) > 0 && !force {
		return fmt.Errorf("%w: %d issues (use --force to store anyway)", types.ErrInvalidRuleSet, len(issues))
	}

	database, _, store, err := openStore(logger)
	if err != nil {
		return err
	}
	defer database.Close()

	survey.Status = types.SurveyDraft
	if activate, _ := cmd.Flags().GetBool("activate"); activate {
		survey.Status = types.SurveyActive
	}
	if err := store.CreateSurvey(ctx, &survey); err != nil {
		return err
	}

	logger.Info().
		Str("survey", string(survey.ID)).
		Str("status", string(survey.Status)).
		Int("questions", len(survey.Questions)).
		Int("lint_issues", len(issues)).
		Msg("survey stored")
	fmt.Fprintln(cmd.OutOrStdout(), survey.ID)
	return nil
}

func setSurveyStatus(cmd *cobra.Command, id types.SurveyID, status types.SurveyStatus) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	database, _, store, err := openStore(logger)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := store.SetSurveyStatus(context.Background(), id, status); err != nil {
		return err
	}
	logger.Info().Str("survey", string(id)).Str("status", string(status)).Msg("survey status changed")
	return nil
}
