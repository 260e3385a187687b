package server

import (
	"testing"
	"time"

	"redline/internal/config"
)

func TestWriteTimeoutOutlastsMailRelay(t *testing.T) {
	for _, mailSeconds := range []int{5, 30, 120} {
		cfg := config.Default()
		cfg.Mail.Timeout = mailSeconds
		mail := time.Duration(mailSeconds) * time.Second
		if got := writeTimeout(&cfg); got <= 2*mail {
			t.Fatalf("mail timeout %s: write timeout %s leaves no room to answer", mail, got)
		}
	}
}
