package app

import (
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/petervdpas/goopchat/internal/chat"
)

// NormalizeLocalAddr keeps the metrics listener on localhost unless a host
// is given explicitly, and returns the listen address and its URL.
func NormalizeLocalAddr(cfgAddr string) (listenAddr string, url string) {
	a := strings.TrimSpace(cfgAddr)
	if strings.HasPrefix(a, ":") {
		a = "127.0.0.1" + a
	}
	if strings.HasPrefix(a, "0.0.0.0:") {
		a = "127.0.0.1:" + strings.TrimPrefix(a, "0.0.0.0:")
	}
	return a, "http://" + a
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

func formatMessage(m chat.Message) string {
	edited := ""
	if m.EditedAt != nil {
		edited = " (edited)"
	}
	return m.CreatedAt.Local().Format(time.TimeOnly) + " " + m.SenderDisplayName + ": " + m.Content + edited + "  [" + m.ID + "]"
}

func logBanner(dir, cfgPath, userName string) {
	log.Println("────────────────────────────────────────")
	log.Println("goopchat client")
	log.Printf(" Client folder : %s", dir)
	log.Printf(" Config file   : %s", cfgPath)
	log.Printf(" Signed in as  : %s", userName)
	log.Println("────────────────────────────────────────")
}
