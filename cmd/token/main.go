package main

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/pantryscout/backend/config"
	"github.com/pantryscout/backend/internal/logger"
	"github.com/pantryscout/backend/internal/service"
	"github.com/pantryscout/backend/internal/types"
	"go.uber.org/zap"
)

// Mints a service token for the protected product endpoints:
//
//	go run ./cmd/token -subject scraper -scopes products:write,scrape -ttl 720h
func main() {
	subject := flag.String("subject", "", "Name of the calling service")
	scopes := flag.String("scopes", types.ScopeProductsWrite+","+types.ScopeScrape, "Comma separated scopes, empty grants all")
	ttl := flag.Duration("ttl", 30*24*time.Hour, "Token lifetime, 0 for no expiry")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	logger.Init()
	defer logger.Close()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	var list []string
	for _, s := range strings.Split(*scopes, ",") {
		if s = strings.TrimSpace(s); s != "" {
			list = append(list, s)
		}
	}

	token, err := service.NewTokenService(cfg.JWTSecret).GenerateToken(*subject, list, *ttl)
	if err != nil {
		logger.Fatal("failed to generate token", zap.Error(err))
	}
	fmt.Println(token)
}
