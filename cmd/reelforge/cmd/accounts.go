package cmd

import (
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/models"
	"github.com/reelforge/reelforge/internal/store"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage publishing accounts",
	Long: `Commands for managing the per-platform account cache.

Accounts are stored as flat JSON files under the accounts directory, one
file per platform.`,
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts for a platform",
	RunE:  runAccountsList,
}

var accountsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an account",
	RunE:  runAccountsAdd,
}

var accountsRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove an account by ID",
	RunE:  runAccountsRemove,
}

func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.AddCommand(accountsListCmd, accountsAddCmd, accountsRemoveCmd)

	accountsCmd.PersistentFlags().String("platform", "youtube", "platform (youtube, twitter)")

	accountsAddCmd.Flags().String("nickname", "", "account nickname (required)")
	accountsAddCmd.Flags().String("niche", "", "content niche, e.g. \"ancient history\" (required)")
	accountsAddCmd.Flags().String("language", "en", "content language code")
	_ = accountsAddCmd.MarkFlagRequired("nickname")
	_ = accountsAddCmd.MarkFlagRequired("niche")

	accountsRemoveCmd.Flags().String("id", "", "account ID (required)")
	_ = accountsRemoveCmd.MarkFlagRequired("id")
}

// accountsStore resolves the platform flag and opens the account store.
func accountsStore(cmd *cobra.Command) (*store.Store, models.Platform, *config.Config, *slog.Logger, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, "", nil, nil, err
	}
	raw, _ := cmd.Flags().GetString("platform")
	platform, err := models.ParsePlatform(raw)
	if err != nil {
		return nil, "", nil, nil, err
	}
	return store.New(cfg.AccountsPath(), logger), platform, cfg, logger, nil
}

func runAccountsList(cmd *cobra.Command, _ []string) error {
	st, platform, _, _, err := accountsStore(cmd)
	if err != nil {
		return err
	}

	accounts, err := st.List(platform)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "no %s accounts configured\n", platform)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNICKNAME\tNICHE\tLANGUAGE\tPUBLISHED")
	for _, a := range accounts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
			a.ID, a.Nickname, a.Niche, a.Language, len(a.History(platform)))
	}
	return w.Flush()
}

func runAccountsAdd(cmd *cobra.Command, _ []string) error {
	st, platform, _, _, err := accountsStore(cmd)
	if err != nil {
		return err
	}

	nickname, _ := cmd.Flags().GetString("nickname")
	niche, _ := cmd.Flags().GetString("niche")
	language, _ := cmd.Flags().GetString("language")

	account := models.NewAccount(nickname, niche, language)
	if err := st.Add(platform, account); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "added %s account %s (%s)\n", platform, account.Nickname, account.ID)
	return nil
}

func runAccountsRemove(cmd *cobra.Command, _ []string) error {
	st, platform, _, _, err := accountsStore(cmd)
	if err != nil {
		return err
	}

	raw, _ := cmd.Flags().GetString("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid account ID %q: %w", raw, err)
	}

	if err := st.Remove(platform, id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %s account %s\n", platform, id)
	return nil
}
