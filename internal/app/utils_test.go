package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "advisor.db")
	dst := filepath.Join(dir, "backups", "advisor_backup_auto.db")

	if err := os.WriteFile(src, []byte("payload"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := copyFile(src, dst); err != nil {
		t.Fatalf("копирование: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("чтение копии: %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("содержимое копии: %q", got)
	}
	// Временный файл не должен оставаться.
	if _, err := os.Stat(dst + ".tmp"); err == nil {
		t.Fatal("остался .tmp после копирования")
	}

	if err := copyFile(filepath.Join(dir, "missing"), dst); err == nil {
		t.Fatal("отсутствующий источник должен давать ошибку")
	}
}
