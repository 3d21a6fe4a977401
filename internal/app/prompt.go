package app

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/petervdpas/goopchat/internal/config"
)

// PromptInteractive walks through the settings a new client folder needs.
// The returned token is empty when the user skipped it.
func PromptInteractive(in io.Reader, out io.Writer, dir, cfgPath string, cfg config.Config) (config.Config, string) {
	br := bufio.NewReader(in)

	fmt.Fprintln(out, "────────────────────────────────────────")
	fmt.Fprintln(out, "goopchat setup")
	fmt.Fprintf(out, " Client folder : %s\n", dir)
	fmt.Fprintf(out, " Config file   : %s\n", cfgPath)
	fmt.Fprintln(out, "────────────────────────────────────────")
	fmt.Fprintln(out)

	cfg.Server.APIURL = askString(br, out, "REST API URL", cfg.Server.APIURL)
	cfg.Server.SocketURL = askString(br, out, "Realtime socket URL", cfg.Server.SocketURL)
	cfg.Chat.PageSize = askInt(br, out, "Messages per page", cfg.Chat.PageSize)
	cfg.Chat.TypingTTLSec = askInt(br, out, "Typing indicator timeout seconds (0=never)", cfg.Chat.TypingTTLSec)
	if !askBool(br, out, "Keep a local channel cache", cfg.Storage.DBPath != "") {
		cfg.Storage.DBPath = ""
	} else if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = config.Default().Storage.DBPath
	}
	cfg.Metrics.HTTPAddr = askString(br, out, "Metrics HTTP addr (empty=off)", cfg.Metrics.HTTPAddr)

	token := askString(br, out, "Session token (empty=skip)", "")

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(out, "Invalid config: %v\nKeeping defaults.\n", err)
		return config.Default(), token
	}
	return cfg, token
}

func askString(in *bufio.Reader, out io.Writer, label, def string) string {
	fmt.Fprintf(out, "%s [%s]: ", label, def)
	s, _ := in.ReadString('\n')
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

func askInt(in *bufio.Reader, out io.Writer, label string, def int) int {
	for {
		fmt.Fprintf(out, "%s [%d]: ", label, def)
		s, err := in.ReadString('\n')
		s = strings.TrimSpace(s)
		if s == "" {
			return def
		}
		if v, convErr := strconv.Atoi(s); convErr == nil {
			return v
		}
		if err != nil {
			return def
		}
		fmt.Fprintln(out, "Please enter a number.")
	}
}

func askBool(in *bufio.Reader, out io.Writer, label string, def bool) bool {
	defStr := "n"
	if def {
		defStr = "y"
	}
	for {
		fmt.Fprintf(out, "%s [y/n] (default=%s): ", label, defStr)
		s, err := in.ReadString('\n')
		s = strings.TrimSpace(strings.ToLower(s))
		if s == "" {
			return def
		}
		switch s {
		case "y", "yes", "true", "1":
			return true
		case "n", "no", "false", "0":
			return false
		}
		if err != nil {
			return def
		}
		fmt.Fprintln(out, "Please enter y or n.")
	}
}
