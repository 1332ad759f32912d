package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/CrowderSoup/spearmint/database"
	"github.com/CrowderSoup/spearmint/services"
	"github.com/spf13/cobra"
)

var (
	loginUsername string
	loginPassword string
	registerEmail string
	registerName  string
)

var stdin = bufio.NewReader(os.Stdin)

// prompt reads one line from stdin when a flag was left empty.
func prompt(label, value string) string {
	if value != "" {
		return value
	}
	fmt.Printf("%s: ", label)
	line, _ := stdin.ReadString('\n')
	return strings.TrimSpace(line)
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		req := services.RegisterRequest{
			Fullname: prompt("Full name", registerName),
			Username: prompt("Username", loginUsername),
			Email:    prompt("Email", registerEmail),
			Password: prompt("Password", loginPassword),
		}
		if err := services.NewAuthService(store).Register(cmd.Context(), req); err != nil {
			return err
		}
		fmt.Println("✅ User registered successfully")
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and remember the session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		username := prompt("Username", loginUsername)
		password := prompt("Password", loginPassword)
		profile, err := services.NewAuthService(store).Login(cmd.Context(), username, password)
		if err != nil {
			return err
		}
		session := services.NewSession(profile)
		if err := (services.SessionFile{Path: cfg.SessionFile}).Save(session); err != nil {
			return err
		}
		fmt.Printf("✅ Login successful. Hey %s!\n", displayName(session))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := (services.SessionFile{Path: cfg.SessionFile}).Clear(); err != nil {
			return err
		}
		fmt.Println("👋 Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(_ services.Config, s services.Session, store database.Store) error {
			fmt.Printf("%s (%s)\n", displayName(s), s.Username)
			if s.Email != "" {
				fmt.Println(s.Email)
			}
			return nil
		})
	},
}

func displayName(s services.Session) string {
	if s.Fullname != "" {
		return s.Fullname
	}
	return s.Username
}

func init() {
	for _, c := range []*cobra.Command{registerCmd, loginCmd} {
		c.Flags().StringVarP(&loginUsername, "username", "u", "", "Username")
		c.Flags().StringVarP(&loginPassword, "password", "p", "", "Password")
	}
	registerCmd.Flags().StringVar(&registerEmail, "email", "", "Email address")
	registerCmd.Flags().StringVar(&registerName, "name", "", "Full name")
	rootCmd.AddCommand(registerCmd, loginCmd, logoutCmd, whoamiCmd)
}
