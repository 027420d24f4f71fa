package config

import (
	_ "embed"
	"path/filepath"

	"github.com/John-Robertt/dhakaflix/internal/infra/fsx"
)

//go:embed sample_config.toml
var sampleConfig string

// SampleTOML 返回带注释的示例配置。
func SampleTOML() string { return sampleConfig }

// WriteSample 把示例配置写到 path；force=false 时拒绝覆盖已有文件（返回 os.ErrExist）。
func WriteSample(path string, force bool) error {
	dir, name := filepath.Split(filepath.Clean(path))
	if dir == "" {
		dir = "."
	}
	if force {
		return fsx.WriteFileAtomicReplace(dir, name, []byte(sampleConfig))
	}
	return fsx.WriteFileAtomicNoOverwrite(dir, name, []byte(sampleConfig))
}
