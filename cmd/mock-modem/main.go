package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"lte-sms-manager/internal/mockmodem"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	inbox := mockmodem.NewInbox(os.Getenv("MODEM_PASSWORD"))
	seed(inbox)

	r := mockmodem.NewRouter(inbox)

	addr := fmt.Sprintf(":%s", port)
	log.Printf("Starting mock Netgear LTE modem on %s (%d messages)", addr, len(inbox.Messages()))
	log.Fatal(http.ListenAndServe(addr, r))
}

// seed fills the inbox with a mix of carrier noise and personal messages
// spread over the last few days.
func seed(inbox *mockmodem.Inbox) {
	now := time.Now()
	samples := []struct {
		sender string
		text   string
		age    time.Duration
	}{
		{"Orange", "Your data allowance is 80% used.", 96 * time.Hour},
		{"+15550100", "Running late, see you at 7", 72 * time.Hour},
		{"Orange", "Your data allowance is 100% used.", 48 * time.Hour},
		{"ShopPromo", "50% off this weekend only!", 30 * time.Hour},
		{"+15550100", "Call me when you land", 5 * time.Hour},
		{"Orange", "Welcome to roaming zone 2", time.Hour},
	}
	for _, s := range samples {
		inbox.Add(s.sender, s.text, now.Add(-s.age))
	}
}
