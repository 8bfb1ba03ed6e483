package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ikkim/telecom-settlement-backend/config"
	"github.com/ikkim/telecom-settlement-backend/internal/app/repository"
	"github.com/ikkim/telecom-settlement-backend/internal/app/service"
	"github.com/ikkim/telecom-settlement-backend/internal/db"
	"github.com/ikkim/telecom-settlement-backend/pkg/logger"
)

// 개통 내역 엑셀을 지정한 계정 권한으로 일괄 등록한다.
//
//	go run cmd/import/main.go -file sales.xlsx -user s1
func main() {
	filePath := flag.String("file", "", "개통 내역 xlsx 경로")
	username := flag.String("user", "", "등록 계정 아이디 (해당 계정의 조회 범위가 적용됨)")
	flag.Parse()

	if *filePath == "" || *username == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.Initialize(logger.Config{Level: "info", Format: "console", EnableColor: true})

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	conn := db.GetDB()
	userRepo := repository.NewUserRepository(conn)
	storeRepo := repository.NewStoreRepository(conn)
	scopes := service.NewScopeService(userRepo, storeRepo)
	policies := service.NewPolicyService(conn, nil)
	sales := service.NewSaleService(repository.NewSaleRepository(conn), storeRepo, repository.NewCustomerRepository(conn), scopes, policies)

	user, err := userRepo.FindByUsername(*username)
	if err != nil {
		log.Fatalf("Unknown user %q: %v", *username, err)
	}
	_, principal, err := scopes.Principal(user.ID)
	if err != nil {
		log.Fatalf("User %q cannot import: %v", *username, err)
	}

	f, err := os.Open(*filePath)
	if err != nil {
		log.Fatal("Failed to open file:", err)
	}
	defer f.Close()

	result, err := sales.Import(principal, f)
	if err != nil {
		log.Fatal("Import failed:", err)
	}

	fmt.Printf("\nSummary:\n")
	fmt.Printf("  Total rows: %d\n", result.Total)
	fmt.Printf("  Created:    %d\n", result.Created)
	fmt.Printf("  Failed:     %d\n", result.Failed)
	for _, e := range result.Errors {
		fmt.Printf("  row %d %s: %s\n", e.Row, e.Field, e.Message)
	}
}
