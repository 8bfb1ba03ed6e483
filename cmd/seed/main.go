package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"

	"github.com/ikkim/telecom-settlement-backend/config"
	"github.com/ikkim/telecom-settlement-backend/internal/app/model"
	"github.com/ikkim/telecom-settlement-backend/internal/app/repository"
	"github.com/ikkim/telecom-settlement-backend/internal/db"
	"github.com/ikkim/telecom-settlement-backend/pkg/util"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// 사용법:
//
//	go run cmd/seed/main.go              데모 조직/정책/계정 생성
//	go run cmd/seed/main.go stores.xlsx  데모 데이터 + 매장 목록 엑셀 가져오기
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to migrate:", err)
	}

	hasher, err := util.NewPasswordHasher(cfg.Password.BcryptCost)
	if err != nil {
		log.Fatal("Invalid BCRYPT_COST:", err)
	}

	conn := db.GetDB()
	if err := seedDemo(conn, hasher); err != nil {
		log.Fatal("Failed to seed demo data:", err)
	}
	fmt.Println("Demo data ready.")

	if len(os.Args) < 2 {
		return
	}

	filePath := os.Args[1]
	fmt.Printf("Reading XLSX file: %s\n", filePath)
	stores, err := readStoresFromXLSX(filePath, repository.NewBranchRepository(conn))
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	fmt.Printf("Total stores to import: %d\n", len(stores))

	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	batchSize := 500
	inserted, err := repository.NewStoreRepository(conn).BulkCreate(stores, batchSize)
	if err != nil {
		log.Fatal("Failed to bulk create stores:", err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Stores inserted: %d (existing codes skipped: %d)\n", inserted, int64(len(stores))-inserted)
}

type demoStore struct {
	branch, code, name, dealer string
}

type demoAccount struct {
	username, name string
	role           model.UserRole
	branch, store  string
}

// seedDemo 여러 번 실행해도 같은 결과 (코드/아이디 기준 FirstOrCreate)
func seedDemo(conn *gorm.DB, hasher *util.PasswordHasher) error {
	return conn.Transaction(func(tx *gorm.DB) error {
		branches := map[string]*model.Branch{}
		for _, b := range []model.Branch{
			{Code: "B17", Name: "17지사"},
			{Code: "B18", Name: "18지사"},
		} {
			branch := b
			branch.IsActive = true
			if err := tx.Where(model.Branch{Code: b.Code}).FirstOrCreate(&branch).Error; err != nil {
				return err
			}
			branches[b.Code] = &branch
		}

		profiles := []model.DealerProfile{
			{
				DealerCode:                "D001",
				DealerName:                "강남대리점",
				DefaultSimFee:             decimal.NewFromInt(7700),
				DefaultMNPDiscount:        decimal.NewFromInt(800),
				TaxRate:                   decimal.RequireFromString("0.10"),
				DefaultPaybackRate:        decimal.RequireFromString("0.05"),
				AutoCalculateTax:          true,
				IncludeSimFeeInSettlement: true,
			},
			{
				DealerCode:         "D002",
				DealerName:         "부산대리점",
				DefaultSimFee:      decimal.NewFromInt(8800),
				TaxRate:            decimal.RequireFromString("0.133"),
				DefaultPaybackRate: decimal.Zero,
				AutoCalculateTax:   true,
			},
		}
		for _, p := range profiles {
			profile := p
			profile.Status = model.DealerStatusActive
			profile.Revision = 1
			if err := profile.SetRules(nil); err != nil {
				return err
			}
			if err := tx.Where(model.DealerProfile{DealerCode: p.DealerCode}).FirstOrCreate(&profile).Error; err != nil {
				return err
			}
		}

		stores := map[string]*model.Store{}
		for _, s := range []demoStore{
			{"B17", "S1", "역삼점", "D001"},
			{"B17", "S2", "선릉점", "D001"},
			{"B17", "S3", "삼성점", "D001"},
			{"B18", "S4", "서면점", "D002"},
		} {
			store := model.Store{
				BranchID:   branches[s.branch].ID,
				DealerCode: s.dealer,
				Code:       s.code,
				Name:       s.name,
				IsActive:   true,
			}
			if err := tx.Omit("Branch").Where(model.Store{Code: s.code}).FirstOrCreate(&store).Error; err != nil {
				return err
			}
			stores[s.code] = &store
		}

		hash, err := hasher.Hash("password123")
		if err != nil {
			return err
		}
		for _, a := range []demoAccount{
			{username: "hq", name: "본사관리자", role: model.RoleHeadquarters},
			{username: "b17", name: "17지사장", role: model.RoleBranch, branch: "B17"},
			{username: "b18", name: "18지사장", role: model.RoleBranch, branch: "B18"},
			{username: "s1", name: "역삼점장", role: model.RoleStore, branch: "B17", store: "S1"},
			{username: "s4", name: "서면점장", role: model.RoleStore, branch: "B18", store: "S4"},
		} {
			user := model.User{
				Username:     a.username,
				PasswordHash: hash,
				Name:         a.name,
				Role:         a.role,
				IsActive:     true,
			}
			if a.branch != "" {
				user.BranchID = &branches[a.branch].ID
			}
			if a.store != "" {
				user.StoreID = &stores[a.store].ID
			}
			if err := tx.Where(model.User{Username: a.username}).FirstOrCreate(&user).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// 매장 목록 시트 헤더: 지사코드 | 매장코드 | 매장명 | 대리점코드 | 주소 | 연락처
func readStoresFromXLSX(filePath string, branchRepo repository.BranchRepository) ([]model.Store, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in XLSX file")
	}

	fmt.Printf("Reading sheet: %s\n", sheetName)

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data found in XLSX file")
	}

	var stores []model.Store
	seenCodes := make(map[string]bool)
	branchIDs := make(map[string]uint)
	skippedCount := 0
	unknownBranchCount := 0

	for i, row := range rows {
		if i == 0 {
			fmt.Printf("Headers: %v\n", row)
			continue
		}
		if len(row) < 4 {
			skippedCount++
			continue
		}

		branchCode := strings.TrimSpace(row[0])
		code := strings.ToUpper(strings.TrimSpace(row[1]))
		name := strings.TrimSpace(row[2])
		dealerCode := strings.ToUpper(strings.TrimSpace(row[3]))
		address := cellAt(row, 4)
		phone := cellAt(row, 5)

		if branchCode == "" || code == "" || dealerCode == "" || !isValidStoreName(name) {
			skippedCount++
			continue
		}
		if seenCodes[code] {
			skippedCount++
			continue
		}
		seenCodes[code] = true

		branchID, ok := branchIDs[branchCode]
		if !ok {
			branch, err := branchRepo.FindByCode(branchCode)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					unknownBranchCount++
					skippedCount++
					continue
				}
				return nil, err
			}
			branchID = branch.ID
			branchIDs[branchCode] = branchID
		}

		stores = append(stores, model.Store{
			BranchID:    branchID,
			DealerCode:  dealerCode,
			Code:        code,
			Name:        name,
			Address:     address,
			PhoneNumber: phone,
			IsActive:    true,
		})
	}

	fmt.Printf("\nSummary:\n")
	fmt.Printf("  Total rows: %d\n", len(rows)-1)
	fmt.Printf("  Valid stores: %d\n", len(stores))
	fmt.Printf("  Skipped rows: %d\n", skippedCount)
	fmt.Printf("  Rows with unknown branch: %d\n", unknownBranchCount)

	return stores, nil
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

// isValidStoreName은 매장명이 유효한지 검증합니다
func isValidStoreName(name string) bool {
	if len([]rune(name)) < 2 {
		return false
	}

	// 숫자만 있는 경우 제외
	if regexp.MustCompile(`^[0-9]+$`).MatchString(name) {
		return false
	}

	// 특수문자만 있는 경우 제외
	if regexp.MustCompile(`^[\p{P}\p{S}\s]+$`).MatchString(name) {
		return false
	}

	return true
}
