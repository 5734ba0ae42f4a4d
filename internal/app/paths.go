package app

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	dirConfigs = "configs"
	dirData    = "data"
	dirStorage = "storage"
	dirDB      = "storage/db"
	dirBackups = "storage/backups"
	dirLogs    = "logs"
)

var (
	configFilePath  = filepath.Join(dirConfigs, "config.json")
	catalogFilePath = filepath.Join(dirData, "universities.json")
	statsFilePath   = filepath.Join(dirData, "stats.json")

	dbFilePath       = filepath.Join(dirDB, "advisor.db")
	dbSHMFilePath    = dbFilePath + "-shm"
	dbWALFilePath    = dbFilePath + "-wal"
	dbBackupFilePath = filepath.Join(dirBackups, "advisor_backup_auto.db")

	logFilePath = filepath.Join(dirLogs, "bot.log")
	errLogPath  = filepath.Join(dirLogs, "errors.log")
)

func initAppLayout() {
	dirs := []string{dirConfigs, dirData, dirStorage, dirDB, dirBackups, dirLogs}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Printf("⚠️ Не удалось создать каталог %s: %v\n", dir, err)
		}
	}

	// Переезд со старой плоской раскладки (всё лежало в корне)
	migrateLegacyFile("config.json", configFilePath)
	migrateLegacyFile("universities.json", catalogFilePath)
	migrateLegacyFile("stats.json", statsFilePath)

	migrateLegacyFile("advisor.db", dbFilePath)
	migrateLegacyFile("advisor.db-shm", dbSHMFilePath)
	migrateLegacyFile("advisor.db-wal", dbWALFilePath)

	migrateLegacyFile("bot.log", logFilePath)
	migrateLegacyFile("errors.log", errLogPath)
}

func migrateLegacyFile(oldPath, newPath string) {
	info, err := os.Stat(oldPath)
	if err != nil || info.IsDir() {
		return
	}
	if _, err := os.Stat(newPath); err == nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(newPath), 0755); err != nil {
		fmt.Printf("⚠️ Не удалось создать каталог для %s: %v\n", newPath, err)
		return
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		fmt.Printf("⚠️ Не удалось переместить %s -> %s: %v\n", oldPath, newPath, err)
	}
}
