package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/solatis/surveylogic/internal/core/auth"
	"github.com/solatis/surveylogic/internal/core/config"
)

var apiKeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage navigation API keys",
}

var apiKeyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Issue a new API key",
	Long: `Issues an API key signed with one of the configured HMAC secrets and
prints it once. Only the key's HMAC is stored.`,
	Args: cobra.NoArgs,
	RunE: runAPIKeyCreate,
}

var apiKeyRevokeCmd = &cobra.Command{
	Use:   "revoke <api-key-id>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runAPIKeyRevoke,
}

func init() {
	rootCmd.AddCommand(apiKeyCmd)
	apiKeyCmd.AddCommand(apiKeyCreateCmd, apiKeyRevokeCmd)
	apiKeyCreateCmd.Flags().String("name", "", "label for the key holder")
	apiKeyCreateCmd.Flags().String("secret-id", "", "HMAC secret to sign with (default: the only configured secret)")
	_ = apiKeyCreateCmd.MarkFlagRequired("name")
}

func runAPIKeyCreate(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}

	secrets, err := config.HMACSecrets()
	if err != nil {
		return fmt.Errorf("failed to load HMAC secrets: %w", err)
	}

	secretID, _ := cmd.Flags().GetString("secret-id")
	if secretID == "" {
		if len(secrets) != 1 {
			ids := make([]string, 0, len(secrets))
			for id := range secrets {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			return fmt.Errorf("--secret-id required when %d secrets are configured %v", len(secrets), ids)
		}
		for id := range secrets {
			secretID = id
		}
	}
	secret, ok := secrets[secretID]
	if !ok {
		return fmt.Errorf("secret %s not configured", secretID)
	}

	key, hash, err := auth.GenerateAPIKey(secretID, secret)
	if err != nil {
		return err
	}

	database, _, store, err := openStore(logger)
	if err != nil {
		return err
	}
	defer database.Close()

	name, _ := cmd.Flags().GetString("name")
	id, err := store.CreateAPIKey(context.Background(), name, secretID, hash)
	if err != nil {
		return err
	}

	logger.Info().Str("api_key_id", id).Str("name", name).Str("secret_id", secretID).Msg("API key issued")
	fmt.Fprintf(cmd.OutOrStdout(), "api_key_id: %s\napi_key:    %s\n", id, key)
	return nil
}

func runAPIKeyRevoke(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	database, _, store, err := openStore(logger)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := store.RevokeAPIKey(context.Background(), args[0]); err != nil {
		return err
	}
	logger.Info().Str("api_key_id", args[0]).Msg("API key revoked")
	return nil
}
