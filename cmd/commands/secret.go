package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/delver-ai/delver/internal/config"
	"github.com/delver-ai/delver/internal/secrets"
)

// NewSecretCommand returns the secret subcommand group.
func NewSecretCommand() *cli.Command {
	return &cli.Command{
		Name:  "secret",
		Usage: "Manage encrypted credentials in the .env file",
		Commands: []*cli.Command{
			{
				Name:   "keygen",
				Usage:  "Generate the encryption key if it does not exist",
				Action: runSecretKeygen,
			},
			{
				Name:      "set",
				Usage:     "Encrypt a value and store it in .env",
				ArgsUsage: "<KEY> [value]",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "key"},
					&cli.StringArg{Name: "value"},
				},
				Action: runSecretSet,
			},
			{
				Name:      "get",
				Usage:     "Decrypt and print a value from .env",
				ArgsUsage: "<KEY>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "key"},
				},
				Action: runSecretGet,
			},
		},
	}
}

func runSecretKeygen(ctx context.Context, cmd *cli.Command) error {
	path := secrets.KeyPath()
	if err := secrets.GenerateIdentity(path); err != nil {
		return err
	}
	fmt.Printf("Encryption key ready at %s\n", path)
	return nil
}

func runSecretSet(ctx context.Context, cmd *cli.Command) error {
	key := strings.TrimSpace(cmd.StringArg("key"))
	if key == "" {
		return fmt.Errorf("usage: delver secret set <KEY> [value]")
	}

	value := cmd.StringArg("value")
	if value == "" {
		// Read the value from stdin so it stays out of shell history.
		fmt.Fprintf(os.Stderr, "Value for %s: ", key)
		var line string
		if _, err := fmt.Scanln(&line); err != nil {
			return fmt.Errorf("read value: %w", err)
		}
		value = line
	}

	keyPath := secrets.KeyPath()
	if err := secrets.GenerateIdentity(keyPath); err != nil {
		return err
	}
	identity, err := secrets.LoadIdentity(keyPath)
	if err != nil {
		return err
	}

	encrypted, err := secrets.Encrypt(value, identity.Recipient())
	if err != nil {
		return err
	}

	envPath := config.DotenvPath()
	if err := secrets.SetEntry(envPath, key, encrypted); err != nil {
		return err
	}
	fmt.Printf("Stored %s (encrypted) in %s\n", key, envPath)
	return nil
}

func runSecretGet(ctx context.Context, cmd *cli.Command) error {
	key := strings.TrimSpace(cmd.StringArg("key"))
	if key == "" {
		return fmt.Errorf("usage: delver secret get <KEY>")
	}

	value, ok, err := secrets.GetEntry(config.DotenvPath(), key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s not found in %s", key, config.DotenvPath())
	}

	if secrets.IsEncrypted(value) {
		identity, err := secrets.LoadIdentity(secrets.KeyPath())
		if err != nil {
			return err
		}
		value, err = secrets.Decrypt(value, identity)
		if err != nil {
			return err
		}
	}

	fmt.Println(value)
	return nil
}
