package database

import (
	"testing"

	"giftshop-backend/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}

	if err := db.Exec(`CREATE TABLE IF NOT EXISTS "users" (
		"id" TEXT PRIMARY KEY,
		"email" TEXT NOT NULL UNIQUE,
		"password" TEXT NOT NULL,
		"name" TEXT,
		"phone" TEXT,
		"company" TEXT,
		"role" TEXT DEFAULT 'customer',
		"is_blocked" INTEGER DEFAULT 0,
		"created_at" DATETIME,
		"updated_at" DATETIME,
		"deleted_at" DATETIME
	)`).Error; err != nil {
		t.Fatal(err)
	}
	return db
}

func TestCreateDefaultAdminNew(t *testing.T) {
	db := setupTestDB(t)
	t.Setenv("ADMIN_EMAIL", "testadmin@test.com")
	t.Setenv("ADMIN_PASSWORD", "testpassword123")

	if err := CreateDefaultAdmin(db, zap.NewNop()); err != nil {
		t.Fatal(err)
	}

	var user models.User
	if err := db.Where("email = ?", "testadmin@test.com").First(&user).Error; err != nil {
		t.Fatal("admin user not created")
	}
	if user.Role != models.RoleAdmin {
		t.Errorf("expected role 'admin', got '%s'", user.Role)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("testpassword123")) != nil {
		t.Error("expected stored password to match ADMIN_PASSWORD")
	}
}

func TestCreateDefaultAdminAlreadyExists(t *testing.T) {
	db := setupTestDB(t)
	t.Setenv("ADMIN_EMAIL", "existing@test.com")
	t.Setenv("ADMIN_PASSWORD", "password123")

	if err := CreateDefaultAdmin(db, zap.NewNop()); err != nil {
		t.Fatal(err)
	}
	// Second call should skip
	if err := CreateDefaultAdmin(db, zap.NewNop()); err != nil {
		t.Fatal(err)
	}

	var count int64
	db.Model(&models.User{}).Where("email = ?", "existing@test.com").Count(&count)
	if count != 1 {
		t.Errorf("expected exactly 1 admin, got %d", count)
	}
}

func TestCreateDefaultAdminRandomPassword(t *testing.T) {
	db := setupTestDB(t)
	t.Setenv("ADMIN_EMAIL", "random@test.com")
	t.Setenv("ADMIN_PASSWORD", "")

	if err := CreateDefaultAdmin(db, zap.NewNop()); err != nil {
		t.Fatal(err)
	}

	var user models.User
	if err := db.Where("email = ?", "random@test.com").First(&user).Error; err != nil {
		t.Fatal("admin not created with random password")
	}
	if user.Password == "" {
		t.Error("expected a hashed password")
	}
}
