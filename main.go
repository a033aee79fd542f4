package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	_ = godotenv.Load()

	theme := flag.String("theme", "auto", "Markdown rendering theme: auto, light, or dark")
	dataDir := flag.String("data", "", "Data directory (defaults to CATALOG_ADMIN_DATA or the user config dir)")
	flag.Parse()
	setMarkdownTheme(markdownThemeFromString(*theme))

	cfg, cfgPath := loadUIConfig()
	if cfg.Theme != "" && !isFlagSet("theme") {
		setMarkdownTheme(markdownThemeFromString(cfg.Theme))
	}

	dir := resolveDataDir(*dataDir)
	store, err := openCatalogStore(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	defer store.Close()

	events := newEventLog(filepath.Join(dir, "events.log"), logLevelFromEnv())

	if _, err := tea.NewProgram(
		initialModel(store, events, cfg, cfgPath),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	).Run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func resolveDataDir(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CATALOG_ADMIN_DATA"); env != "" {
		return env
	}
	return resolveConfigDir()
}

func logLevelFromEnv() zerolog.Level {
	level, err := zerolog.ParseLevel(os.Getenv("CATALOG_ADMIN_LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
