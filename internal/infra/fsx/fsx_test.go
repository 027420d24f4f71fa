package fsx

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func noTempLeft(t *testing.T, dir, name string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir 失败：%v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "."+name+".tmp-") {
			t.Fatalf("临时文件未清理：%q", e.Name())
		}
	}
}

func TestWriteFileAtomicReplace_Overwrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")

	if err := WriteFileAtomicReplace(dir, "dhakaflix.toml", []byte("a = 1")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if err := WriteFileAtomicReplace(dir, "dhakaflix.toml", []byte("a = 2")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "dhakaflix.toml"))
	if err != nil {
		t.Fatalf("读取文件失败：%v", err)
	}
	if string(b) != "a = 2" {
		t.Fatalf("内容不一致：%q", string(b))
	}
	noTempLeft(t, dir, "dhakaflix.toml")
}

func TestWriteFileAtomicNoOverwrite_Exists(t *testing.T) {
	dir := t.TempDir()
	if err := WriteFileAtomicNoOverwrite(dir, "c.toml", []byte("x")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	err := WriteFileAtomicNoOverwrite(dir, "c.toml", []byte("y"))
	if !errors.Is(err, os.ErrExist) {
		t.Fatalf("期望 os.ErrExist，实际 %v", err)
	}
	b, _ := os.ReadFile(filepath.Join(dir, "c.toml"))
	if string(b) != "x" {
		t.Fatalf("已有文件不应被覆盖：%q", string(b))
	}
}

func TestWriteFileAtomic_RenameFail_CleanupTemp(t *testing.T) {
	dir := t.TempDir()

	old := renameFunc
	renameFunc = func(string, string) error { return os.ErrPermission }
	defer func() { renameFunc = old }()

	if err := WriteFileAtomicReplace(dir, "a.txt", []byte("hello")); err == nil {
		t.Fatalf("期望失败，但得到 nil")
	}
	noTempLeft(t, dir, "a.txt")
	if _, err := os.Stat(filepath.Join(dir, "a.txt")); !os.IsNotExist(err) {
		t.Fatalf("不应写出最终文件")
	}
}

func TestWriteFileAtomic_TargetConflictDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "a.txt"), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}

	if err := WriteFileAtomicNoOverwrite(dir, "a.txt", []byte("hello")); !IsPathTypeConflict(err) {
		t.Fatalf("期望 PathTypeConflictError，实际：%T %v", err, err)
	}
	if err := WriteFileAtomicReplace(dir, "a.txt", []byte("hello")); !IsPathTypeConflict(err) {
		t.Fatalf("期望 PathTypeConflictError，实际：%T %v", err, err)
	}
}
