package main

import (
	"fmt"
	"os"

	"github.com/vkatenev/glasha/common/crypto"
	"github.com/vkatenev/glasha/common/environment"
	"github.com/vkatenev/glasha/common/version"
	"github.com/vkatenev/glasha/internal/glasha/app"
	"github.com/vkatenev/glasha/internal/glasha/matrix"
	"github.com/vkatenev/glasha/internal/glasha/store"
)

func main() {
	fmt.Printf("Glasha Mail Secretary\n")
	fmt.Printf("Version: %s\n", version.Version)
	fmt.Printf("Commit: %s\n", version.GitCommit)
	fmt.Printf("Build Time: %s\n", version.BuildTime)
	fmt.Println()

	if len(os.Args) > 1 && os.Args[1] == "set-account" {
		if err := runSetAccount(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	config := loadConfig()

	if config.Matrix.Homeserver == "" {
		fmt.Fprintf(os.Stderr, "Error: MATRIX_HOMESERVER is required\n")
		os.Exit(1)
	}
	if config.Matrix.UserID == "" {
		fmt.Fprintf(os.Stderr, "Error: MATRIX_USER_ID is required\n")
		os.Exit(1)
	}
	if config.Matrix.AccessToken == "" {
		fmt.Fprintf(os.Stderr, "Error: MATRIX_ACCESS_TOKEN is required\n")
		os.Exit(1)
	}
	if len(config.Matrix.Rooms) == 0 {
		fmt.Fprintf(os.Stderr, "Error: MATRIX_ROOMS is required\n")
		os.Exit(1)
	}

	rawKey, err := environment.RequiredString("GLASHA_MASTER_KEY")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\nGenerate a key with: openssl rand -hex 32\n", err)
		os.Exit(1)
	}
	masterKey, err := crypto.ParseMasterKey(rawKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\nGenerate a key with: openssl rand -hex 32\n", err)
		os.Exit(1)
	}
	config.MasterKey = masterKey

	glasha, err := app.New(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize Glasha: %v\n", err)
		os.Exit(1)
	}
	defer glasha.Stop()

	if err := glasha.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running Glasha: %v\n", err)
		os.Exit(1)
	}
}

// runSetAccount stores one owner's SMTP credentials and exits. Configuration
// comes from GLASHA_ACCOUNT_* environment variables so the password never
// appears in shell history or process listings.
func runSetAccount() error {
	rawKey, err := environment.RequiredString("GLASHA_MASTER_KEY")
	if err != nil {
		return err
	}
	masterKey, err := crypto.ParseMasterKey(rawKey)
	if err != nil {
		return err
	}

	owner, err := environment.RequiredString("GLASHA_ACCOUNT_OWNER")
	if err != nil {
		return err
	}
	host, err := environment.RequiredString("GLASHA_ACCOUNT_SMTP_HOST")
	if err != nil {
		return err
	}
	username, err := environment.RequiredString("GLASHA_ACCOUNT_USERNAME")
	if err != nil {
		return err
	}
	password, err := environment.RequiredString("GLASHA_ACCOUNT_PASSWORD")
	if err != nil {
		return err
	}
	from, err := environment.RequiredString("GLASHA_ACCOUNT_FROM")
	if err != nil {
		return err
	}

	acct := store.MailAccount{
		OwnerMXID:   owner,
		SMTPHost:    host,
		SMTPPort:    environment.IntOr("GLASHA_ACCOUNT_SMTP_PORT", 465),
		Username:    username,
		FromAddr:    from,
		DisplayName: environment.StringOr("GLASHA_ACCOUNT_FROM_NAME", ""),
	}
	dbPath := environment.StringOr("DATABASE_PATH", "./glasha.db")
	return app.SaveMailAccount(dbPath, masterKey, acct, password)
}

// loadConfig loads configuration from environment variables.
func loadConfig() *app.Config {
	return &app.Config{
		DatabasePath: environment.StringOr("DATABASE_PATH", "./glasha.db"),
		LexiconPath:  environment.StringOr("GLASHA_LEXICON_PATH", ""),
		HTTPAddr:     environment.StringOr("GLASHA_HTTP_ADDR", ""),
		Matrix: matrix.Config{
			Homeserver:  environment.StringOr("MATRIX_HOMESERVER", ""),
			UserID:      environment.StringOr("MATRIX_USER_ID", ""),
			AccessToken: environment.StringOr("MATRIX_ACCESS_TOKEN", ""),
			Rooms:       environment.StringSliceOr("MATRIX_ROOMS", nil),
			Users:       environment.StringSliceOr("MATRIX_ALLOWED_USERS", nil),
		},
		SMTPHost:     environment.StringOr("GLASHA_SMTP_HOST", ""),
		SMTPPort:     environment.IntOr("GLASHA_SMTP_PORT", 465),
		SMTPUsername: environment.StringOr("GLASHA_SMTP_USERNAME", ""),
		SMTPPassword: environment.StringOr("GLASHA_SMTP_PASSWORD", ""),
		SMTPFrom:     environment.StringOr("GLASHA_SMTP_FROM", ""),
		SMTPFromName: environment.StringOr("GLASHA_SMTP_FROM_NAME", "Глаша"),
	}
}
