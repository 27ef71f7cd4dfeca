package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/speed2048/internal/speedrun"
)

var flagEmail string

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage your account on the account service",
	Long: `Register, log in and manage two-factor authentication.

The service URL comes from account.url in the config or --api.
A successful login stores the session token in ~/.speed2048/token;
later games relay their results with it.

Examples:
  speed2048 account register alice --email alice@example.com --api http://localhost:3000
  speed2048 account login alice
  speed2048 account 2fa setup
  speed2048 account 2fa enable 123456
  speed2048 account me`,
}

var registerCmd = &cobra.Command{
	Use:   "register <username>",
	Short: "Create an account",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegister,
}

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Log in and store the session token",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Invalidate the stored session token",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Show your personal bests",
	Args:  cobra.NoArgs,
	RunE:  runMe,
}

var twoFactorCmd = &cobra.Command{
	Use:   "2fa",
	Short: "Manage TOTP two-factor authentication",
}

var twoFactorSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Generate a TOTP secret for your authenticator app",
	Args:  cobra.NoArgs,
	RunE:  runTwoFactorSetup,
}

var twoFactorEnableCmd = &cobra.Command{
	Use:   "enable <code>",
	Short: "Confirm the TOTP secret with a current code",
	Args:  cobra.ExactArgs(1),
	RunE:  runTwoFactorEnable,
}

func init() {
	registerCmd.Flags().StringVar(&flagEmail, "email", "", "Account email address")
	_ = registerCmd.MarkFlagRequired("email")

	twoFactorCmd.AddCommand(twoFactorSetupCmd, twoFactorEnableCmd)
	accountCmd.AddCommand(registerCmd, loginCmd, logoutCmd, meCmd, twoFactorCmd)
}

func runRegister(_ *cobra.Command, args []string) error {
	client, err := requireClient()
	if err != nil {
		return err
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}
	confirm, err := readPassword("Repeat password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}

	ctx, cancel := commandContext()
	defer cancel()
	if err := client.Register(ctx, args[0], password, flagEmail); err != nil {
		return err
	}

	fmt.Printf("Registered %s. Log in with 'speed2048 account login %s'.\n", args[0], args[0])
	return nil
}

func runLogin(_ *cobra.Command, args []string) error {
	client, err := requireClient()
	if err != nil {
		return err
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()
	resp, err := client.Login(ctx, args[0], password)
	if err != nil {
		return err
	}

	if resp.TwoFactorRequired {
		code, err := readLine("Authenticator code: ")
		if err != nil {
			return err
		}
		// The first request may have used most of the timeout
		ctx2, cancel2 := commandContext()
		defer cancel2()
		resp, err = client.LoginTwoFactor(ctx2, resp.Challenge, code)
		if err != nil {
			return err
		}
	}

	if err := writeToken(resp.Token); err != nil {
		return fmt.Errorf("cannot store session token: %w", err)
	}
	fmt.Printf("Logged in as %s.\n", args[0])
	return nil
}

func runLogout(_ *cobra.Command, _ []string) error {
	client, err := requireClient()
	if err != nil {
		return err
	}
	if client.Token() == "" {
		fmt.Println("Not logged in.")
		return nil
	}

	ctx, cancel := commandContext()
	defer cancel()
	if err := client.Logout(ctx); err != nil {
		return err
	}

	if path := tokenPath(); path != "" {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	fmt.Println("Logged out.")
	return nil
}

func runMe(_ *cobra.Command, _ []string) error {
	client, err := requireClient()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()
	res, err := client.UserResults(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Best score:         %d\n", res.BestScore)
	if res.BestSpeedrunTime != nil {
		fmt.Printf("Best speedrun time: %s\n", speedrun.FormatMillis(*res.BestSpeedrunTime))
	} else {
		fmt.Println("Best speedrun time: none yet")
	}
	if len(res.BestBlockTimes) > 0 {
		fmt.Println("Best splits:")
		for _, v := range res.BestBlockTimes.Values() {
			fmt.Printf("  %5d  %s\n", v, speedrun.FormatMillis(res.BestBlockTimes[v]))
		}
	}
	return nil
}

func runTwoFactorSetup(_ *cobra.Command, _ []string) error {
	client, err := requireClient()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()
	resp, err := client.SetupTwoFactor(ctx)
	if err != nil {
		return err
	}

	fmt.Println("Add this account to your authenticator app:")
	fmt.Println()
	fmt.Printf("  Secret: %s\n", resp.Secret)
	fmt.Printf("  URL:    %s\n", resp.URL)
	fmt.Println()
	fmt.Println("Then confirm with 'speed2048 account 2fa enable <code>'.")
	return nil
}

func runTwoFactorEnable(_ *cobra.Command, args []string) error {
	client, err := requireClient()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()
	if err := client.EnableTwoFactor(ctx, args[0]); err != nil {
		return err
	}
	fmt.Println("Two-factor authentication enabled.")
	return nil
}

// readPassword prompts on stderr and reads without echo when stdin is a terminal.
func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return readLine(prompt)
	}
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

var stdin = bufio.NewReader(os.Stdin)

func readLine(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	line, err := stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
