package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"lte-sms-manager/handler"
	"lte-sms-manager/internal/integrations/netgear"
	"lte-sms-manager/internal/integrations/paramstore"
	"lte-sms-manager/internal/modem"
	"lte-sms-manager/internal/repository"
	"lte-sms-manager/internal/usecase"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// ---- Configuration (read only here) ----
	paramPrefix := strings.TrimRight(mustEnv("PARAM_PREFIX"), "/")
	eventsTable := mustEnv("EVENTS_TABLE")
	modemHosts := splitHosts(mustEnv("MODEM_HOSTS"))
	modemTimeout := time.Duration(envInt("MODEM_TIMEOUT_SECONDS", 10)) * time.Second
	eventTTL := time.Duration(envInt("EVENT_TTL_DAYS", 30)) * 24 * time.Hour

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	settings, err := paramstore.NewSettings(ssmClient, paramPrefix)
	if err != nil {
		slog.Error("failed to create settings source", "err", err)
		os.Exit(1)
	}
	eventStore, err := repository.New(awsdynamodb.NewFromConfig(cfg), eventsTable, eventTTL)
	if err != nil {
		slog.Error("failed to create event store", "err", err)
		os.Exit(1)
	}

	password, err := ssmClient.GetOptionalParameter(ctx, paramPrefix+"/modem_password")
	if err != nil {
		slog.Error("failed to load modem password", "err", err)
		os.Exit(1)
	}

	// ---- Modems ----
	registry := modem.NewRegistry()
	for _, host := range modemHosts {
		ep := modem.Endpoint{Host: host, Title: "Netgear LTE " + host}
		client, err := netgear.NewClient(host, netgear.WithPassword(password), netgear.WithTimeout(modemTimeout))
		if err != nil {
			// registered without a device so selection reports it as not loaded
			slog.Warn("failed to create modem client", "host", host, "err", err)
		} else {
			ep.Device = client
		}
		registry.Add(ep)
	}

	// ---- Handler ----
	inboxService, err := usecase.NewInboxService(registry, settings, eventStore, logger, usecase.WithEventReader(eventStore))
	if err != nil {
		slog.Error("failed to create inbox service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(inboxService)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func splitHosts(raw string) []string {
	var hosts []string
	for _, h := range strings.Split(raw, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}
