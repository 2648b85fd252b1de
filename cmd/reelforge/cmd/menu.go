package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/reelforge/reelforge/internal/models"
	"github.com/reelforge/reelforge/internal/pipeline"
	"github.com/reelforge/reelforge/internal/store"
)

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Interactive menu",
	Long:  `Walk through account selection and generation with numbered prompts instead of flags.`,
	RunE:  runMenu,
}

func init() {
	rootCmd.AddCommand(menuCmd)
}

func runMenu(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	st := store.New(cfg.AccountsPath(), logger)
	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	for {
		platform, err := pickPlatform(in, out)
		if err != nil {
			return err
		}
		if platform == "" {
			return nil
		}

		for {
			fmt.Fprintf(out, "\n[%s]\n", platform)
			fmt.Fprintln(out, "  1) generate now")
			fmt.Fprintln(out, "  2) list accounts")
			fmt.Fprintln(out, "  3) add account")
			fmt.Fprintln(out, "  4) remove account")
			fmt.Fprintln(out, "  5) show history")
			fmt.Fprintln(out, "  6) back")
			choice, err := promptLine(in, out, "> ")
			if err != nil {
				return err
			}

			switch choice {
			case "1":
				account, err := pickAccount(in, out, st, platform)
				if err != nil {
					return err
				}
				if account == nil {
					continue
				}
				deps, err := pipeline.BuildDependencies(cfg, logger)
				if err != nil {
					return err
				}
				ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
				err = runPipeline(ctx, factoryFor(platform, deps), *account, platform, logger)
				stop()
				if err != nil {
					fmt.Fprintf(out, "generation failed: %v\n", err)
				}
			case "2":
				if err := printAccounts(out, st, platform); err != nil {
					return err
				}
			case "3":
				if err := addAccountInteractive(in, out, st, platform); err != nil {
					return err
				}
			case "4":
				account, err := pickAccount(in, out, st, platform)
				if err != nil {
					return err
				}
				if account == nil {
					continue
				}
				if err := st.Remove(platform, account.ID); err != nil {
					return err
				}
				fmt.Fprintf(out, "removed %s\n", account.Nickname)
			case "5":
				account, err := pickAccount(in, out, st, platform)
				if err != nil {
					return err
				}
				if account == nil {
					continue
				}
				printHistory(out, account, platform)
			case "6", "q", "":
				platform = ""
			default:
				fmt.Fprintln(out, "pick a number from the list")
			}
			if platform == "" {
				break
			}
		}
	}
}

// pickPlatform returns "" when the user chooses to quit.
func pickPlatform(in *bufio.Reader, out io.Writer) (models.Platform, error) {
	platforms := models.Platforms()
	fmt.Fprintln(out, "\nPlatform:")
	for i, p := range platforms {
		fmt.Fprintf(out, "  %d) %s\n", i+1, p)
	}
	fmt.Fprintf(out, "  %d) quit\n", len(platforms)+1)
	for {
		choice, err := promptLine(in, out, "> ")
		if err != nil {
			return "", err
		}
		n, err := strconv.Atoi(choice)
		if err == nil && n >= 1 && n <= len(platforms) {
			return platforms[n-1], nil
		}
		if choice == "" || choice == "q" || n == len(platforms)+1 {
			return "", nil
		}
		fmt.Fprintln(out, "pick a number from the list")
	}
}

// pickAccount returns nil without error when there is nothing to pick.
func pickAccount(in *bufio.Reader, out io.Writer, st *store.Store, platform models.Platform) (*models.Account, error) {
	accounts, err := st.List(platform)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		fmt.Fprintln(out, "no accounts yet; add one first")
		return nil, nil
	}
	if len(accounts) == 1 {
		return &accounts[0], nil
	}
	fmt.Fprintln(out, "Account:")
	for i, a := range accounts {
		fmt.Fprintf(out, "  %d) %s (%s)\n", i+1, a.Nickname, a.Niche)
	}
	for {
		choice, err := promptLine(in, out, "> ")
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(choice)
		if err == nil && n >= 1 && n <= len(accounts) {
			return &accounts[n-1], nil
		}
		if choice == "" || choice == "q" {
			return nil, nil
		}
		fmt.Fprintln(out, "pick a number from the list")
	}
}

func addAccountInteractive(in *bufio.Reader, out io.Writer, st *store.Store, platform models.Platform) error {
	nickname, err := promptLine(in, out, "nickname: ")
	if err != nil {
		return err
	}
	if nickname == "" {
		return nil
	}
	niche, err := promptLine(in, out, "niche: ")
	if err != nil {
		return err
	}
	language, err := promptLine(in, out, "language [en]: ")
	if err != nil {
		return err
	}
	if language == "" {
		language = "en"
	}
	account := models.NewAccount(nickname, niche, language)
	if err := st.Add(platform, account); err != nil {
		return err
	}
	fmt.Fprintf(out, "added %s (%s)\n", account.Nickname, account.ID)
	return nil
}

func printAccounts(out io.Writer, st *store.Store, platform models.Platform) error {
	accounts, err := st.List(platform)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		fmt.Fprintln(out, "no accounts")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNICKNAME\tNICHE\tLANGUAGE\tPOSTS")
	for _, a := range accounts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", a.ID, a.Nickname, a.Niche, a.Language, len(a.History(platform)))
	}
	return tw.Flush()
}

func printHistory(out io.Writer, account *models.Account, platform models.Platform) {
	history := account.History(platform)
	if len(history) == 0 {
		fmt.Fprintln(out, "no history")
		return
	}
	for _, rec := range history {
		title := rec.Title
		if title == "" {
			title = rec.Content
		}
		fmt.Fprintf(out, "  %s  %s\n", rec.Date.Format("2006-01-02"), title)
		if rec.URL != "" {
			fmt.Fprintf(out, "            %s\n", rec.URL)
		}
	}
}

func promptLine(in *bufio.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		if err == io.EOF {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}
