package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	loginEmail    string
	loginPassword string
	loginBaseURL  string
	loginWSURL    string
)

// loginCmd authenticates and stores the access token in the profile
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and save the session to the profile",
	Long: `Log in with the agent's email and password. The password may also be
given in SGI_PASSWORD.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "agent email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "agent password")
	loginCmd.Flags().StringVar(&loginBaseURL, "base-url", "", "inbox server URL, e.g. https://sgi.example.pe")
	loginCmd.Flags().StringVar(&loginWSURL, "ws-url", "", "notifications server URL when it is not the base URL")
}

func runLogin(cmd *cobra.Command, args []string) error {
	if loginBaseURL != "" {
		profile.BaseURL = strings.TrimRight(loginBaseURL, "/")
	}
	if loginWSURL != "" {
		profile.WSURL = strings.TrimRight(loginWSURL, "/")
	}
	email := strings.TrimSpace(loginEmail)
	if email == "" {
		email = profile.Email
	}
	password := loginPassword
	if password == "" {
		password = os.Getenv("SGI_PASSWORD")
	}
	if email == "" || password == "" {
		return fmt.Errorf("--email and --password (or SGI_PASSWORD) are required")
	}

	res, err := newClient().Login(cmd.Context(), email, password)
	if err != nil {
		return explain(err)
	}
	profile.Token = res.AccessToken
	profile.AgentID = res.Agent.AgentID
	profile.Email = res.Agent.Email
	if err := saveProfile(profilePath, profile); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (%s)\n", res.Agent.Name, strings.Join(res.Agent.Roles, ", "))
	return nil
}
