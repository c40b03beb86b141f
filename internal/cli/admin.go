// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// admin.go - Application registry management for the tinylollms CLI.
//
// Handles the "tinylollms admin" command family. These act directly on
// the local registry database, so they work without a running gateway;
// the HTTP admin API covers the remote case.
//
// Command: admin
// Subcommands: add, list, remove, passwd
//
// Examples:
//   tinylollms admin add "Shop Bot" --binding lollms --host http://localhost:9600
//   tinylollms admin add "Docs" --binding openai --host https://api.openai.com \
//       --service-key sk-... --models "gpt-4o,gpt-4o-mini"
//   tinylollms admin list
//   tinylollms admin remove d41f...
//   tinylollms admin passwd
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/ParisNeo/tinyLollms/internal/auth"
	"github.com/ParisNeo/tinyLollms/internal/binding"
	"github.com/ParisNeo/tinyLollms/internal/config"
	"github.com/ParisNeo/tinyLollms/internal/store"
	"github.com/ParisNeo/tinyLollms/internal/util"
)

// registryTimeout bounds each registry operation.
const registryTimeout = 5 * time.Second

// HandleAdmin manages the application registry.
func HandleAdmin(args Args) error {
	parser := NewArgParser(args.Raw)

	switch parser.Subcommand() {
	case "add", "create":
		return adminAdd(parser)
	case "list", "ls":
		return adminList(parser)
	case "remove", "rm", "delete":
		return adminRemove(parser)
	case "passwd":
		return adminPasswd()
	default:
		return fmt.Errorf("unknown admin subcommand %q\nUsage: tinylollms admin add|list|remove|passwd",
			parser.Subcommand())
	}
}

// openRegistry opens the registry at the configured or overridden path.
func openRegistry(parser *ArgParser) (*store.Store, error) {
	cfg := config.Global()
	path := parser.FlagOrDefault("db", cfg.Server.DatabasePath)
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open application registry: %w", err)
	}
	return st, nil
}

// knownBinding reports membership in the supported binding set.
func knownBinding(name string) bool {
	for _, b := range binding.Names() {
		if b == name {
			return true
		}
	}
	return false
}

// =============================================================================
// SUBCOMMANDS
// =============================================================================

// adminAdd registers a new application.
func adminAdd(parser *ArgParser) error {
	name := strings.Join(parser.PositionalFrom(1), " ")
	if name == "" {
		return errors.New("application name is required\nUsage: tinylollms admin add NAME --binding lollms --host URL")
	}

	bindingName := parser.FlagOrDefault("binding", binding.BindingLollms)
	if !knownBinding(bindingName) {
		return fmt.Errorf("unknown binding %q (supported: %s)",
			bindingName, strings.Join(binding.Names(), ", "))
	}

	// An empty host is stored as-is; the binding supplies its own
	// default at chat time.
	app := &store.App{
		Key:            parser.Flag("key"),
		Name:           name,
		Binding:        bindingName,
		HostAddress:    parser.Flag("host"),
		ServiceKey:     parser.Flag("service-key"),
		WelcomeMessage: parser.Flag("welcome"),
		AllowedModels:  store.ParseModelList(parser.Flag("models")),
	}

	st, err := openRegistry(parser)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), registryTimeout)
	defer cancel()

	key, err := st.Create(ctx, app)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateApp) {
			return fmt.Errorf("an application with key %q already exists", app.Key)
		}
		return err
	}

	host := app.HostAddress
	if host == "" {
		host = binding.DefaultHost(app.Binding)
	}
	fmt.Printf("created %q\n", name)
	fmt.Printf("  key:     %s\n", key)
	fmt.Printf("  binding: %s @ %s\n", app.Binding, host)
	if len(app.AllowedModels) > 0 {
		fmt.Printf("  models:  %s\n", strings.Join(app.AllowedModels, ", "))
	}
	return nil
}

// adminList prints the registered applications.
func adminList(parser *ArgParser) error {
	st, err := openRegistry(parser)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), registryTimeout)
	defer cancel()

	apps, err := st.List(ctx)
	if err != nil {
		return err
	}
	if len(apps) == 0 {
		fmt.Println("no applications registered")
		return nil
	}

	fmt.Printf("%s %s %s %s\n",
		util.PadRight("KEY", 38),
		util.PadRight("NAME", 20),
		util.PadRight("BINDING", 8),
		"MODELS")
	for _, app := range apps {
		models := "any"
		if len(app.AllowedModels) > 0 {
			models = strings.Join(app.AllowedModels, ",")
		}
		fmt.Printf("%s %s %s %s\n",
			util.PadRight(app.Key, 38),
			util.PadRight(util.TruncateWidth(app.Name, 20), 20),
			util.PadRight(app.Binding, 8),
			models)
	}
	return nil
}

// adminRemove deletes an application by key.
func adminRemove(parser *ArgParser) error {
	key := parser.Positional(1)
	if key == "" {
		return errors.New("application key is required\nUsage: tinylollms admin remove KEY")
	}

	st, err := openRegistry(parser)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), registryTimeout)
	defer cancel()

	if err := st.Delete(ctx, key); err != nil {
		if errors.Is(err, store.ErrAppNotFound) {
			return fmt.Errorf("no application with key %q", key)
		}
		return err
	}
	fmt.Printf("deleted %s\n", key)
	return nil
}

// adminPasswd hashes a new admin password into the config file,
// replacing any plaintext password stored there.
func adminPasswd() error {
	fmt.Print("New admin password: ")
	password, err := readPassword()
	if err != nil {
		return err
	}
	if password == "" {
		return errors.New("password must not be empty")
	}

	fmt.Print("Repeat password: ")
	confirm, err := readPassword()
	if err != nil {
		return err
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	cfg := config.Global()
	cfg.Admin.PasswordHash = hash
	cfg.Admin.Password = ""
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	path, _ := config.ConfigPath()
	fmt.Printf("password hash written to %s\n", path)
	return nil
}

// =============================================================================
// HELPER: READ PASSWORD
// =============================================================================

// readPassword reads a password from stdin without echoing.
func readPassword() (string, error) {
	passBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println() // newline after hidden input

	return strings.TrimSpace(string(passBytes)), nil
}
