package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"igfollowers/pkg/auth"
	"igfollowers/pkg/instagram"
	"igfollowers/pkg/ui"
)

var logoutAll bool

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Instagram credentials",
	Long: `Manage stored Instagram credentials.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file protected by a passphrase
  - Environment variables (read only)

Never share your credentials or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store a credential",
	Long: `Store an Instagram credential in the system keychain or encrypted file.

You will be prompted for:
  - Instagram username (if not provided)
  - Authorization token (the Bearer IGT:2:... value)
  - x-mid, ds_user_id and rur cookies (optional)
  - User Agent (optional, press Enter for the default)

Run 'igfollowers auth guide' to see where to find these values.`,
	Example: `  # Interactive login
  igfollowers auth login

  # Login with username
  igfollowers auth login myusername`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [username]",
	Short: "Remove stored credentials",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Long:  `List all stored accounts with masked credential values.`,
	RunE:  runList,
}

// guideCmd represents the auth guide command
var guideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Explain how to obtain a credential",
	Run: func(cmd *cobra.Command, args []string) {
		auth.ShowCredentialGuide(os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
	authCmd.AddCommand(guideCmd)

	logoutCmd.Flags().BoolVar(&logoutAll, "all", false, "remove every stored account")
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)

	auth.ShowQuickGuide(os.Stdout)

	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		username = prompt(reader, "Instagram username: ")
	}
	username = instagram.SanitizeUsername(username)
	if !instagram.IsValidUsername(username) {
		return fmt.Errorf("invalid username %q", username)
	}

	if existing, _ := manager.Retrieve(username); existing != nil {
		answer := prompt(reader, fmt.Sprintf("\nAccount '%s' already exists. Update credentials? (y/N): ", username))
		if !strings.HasPrefix(strings.ToLower(answer), "y") {
			return nil
		}
	}

	fmt.Println("\nThe token is hidden as you type.")
	fmt.Print("Authorization token: ")
	token, err := readPassword(reader)
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}

	account := &auth.Account{
		Username:     username,
		Token:        token,
		MID:          prompt(reader, "x-mid cookie (optional): "),
		DSUserID:     prompt(reader, "ds_user_id cookie (optional): "),
		Rur:          prompt(reader, "rur cookie (optional): "),
		UserAgent:    prompt(reader, "User Agent (press Enter for default): "),
		LastModified: time.Now(),
	}
	if err := account.Validate(); err != nil {
		return err
	}
	if !strings.HasPrefix(instagram.NormalizeToken(account.Token), "Bearer IGT:") {
		ui.PrintWarning("The token does not look like an IGT bearer token; it will be sent as given")
	}

	if err := manager.Store(account); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	ui.PrintSuccess(fmt.Sprintf("Account saved: %s", username))
	if auth.IsKeyringAvailable() {
		fmt.Println("   Stored in the system keychain and an encrypted file.")
	} else {
		fmt.Println("   Stored in an encrypted file.")
	}
	fmt.Println("\n   $ igfollowers collect <user-id>")
	fmt.Printf("   $ igfollowers collect <user-id> --account %s\n", username)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	if logoutAll {
		reader := bufio.NewReader(os.Stdin)
		if prompt(reader, "Remove ALL accounts? This cannot be undone! (yes/N): ") != "yes" {
			return nil
		}
		if err := manager.DeleteAll(); err != nil {
			return fmt.Errorf("failed to remove all accounts: %w", err)
		}
		ui.PrintSuccess("All accounts removed")
		return nil
	}

	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		accounts, err := manager.List()
		if err != nil || len(accounts) == 0 {
			ui.PrintError("No stored accounts found")
			return nil
		}
		fmt.Println("Select account to remove:")
		for i, account := range accounts {
			fmt.Printf("  %d. %s\n", i+1, account.Username)
		}
		fmt.Printf("  0. Cancel\n\n")

		var choice int
		fmt.Sscanf(prompt(bufio.NewReader(os.Stdin), "Choice: "), "%d", &choice)
		if choice == 0 {
			return nil
		}
		if choice < 0 || choice > len(accounts) {
			return fmt.Errorf("invalid choice")
		}
		username = accounts[choice-1].Username
	}

	if err := manager.Delete(username); err != nil {
		return fmt.Errorf("failed to remove account: %w", err)
	}
	ui.PrintSuccess("Account removed: " + username)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	accounts, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "Use 'igfollowers auth login' to add an account")
		return nil
	}

	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Printf("%d. Username: %s\n", i+1, sanitized.Username)
		fmt.Printf("   Token: %s\n", sanitized.Token)
		if sanitized.DSUserID != "" {
			fmt.Printf("   ds_user_id: %s\n", sanitized.DSUserID)
		}
		if sanitized.UserAgent != "" {
			fmt.Printf("   User Agent: %s\n", sanitized.UserAgent)
		}
		fmt.Printf("   Last Modified: %s\n\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

// readPassword reads a secret from stdin without echoing when stdin is a terminal
func readPassword(reader *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
