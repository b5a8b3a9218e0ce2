package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	Database struct {
		Path string
	}
	Download struct {
		DataDir        string
		MaxConcurrent  int
		TimeoutMinutes int
	}
	Instagram struct {
		// WorkerCommand is the argv of the external Instagram worker, e.g.
		// "python3 worker.py". Empty disables the Instagram backend.
		WorkerCommand string
	}
	Torrent struct {
		Enabled bool
	}
	List struct {
		PageSize int
	}
	Storage struct {
		Bucket      string
		KeyPrefix   string
		Region      string
		Endpoint    string
		AutoArchive bool
	}
	AWS struct {
		Profile string
	}
	Auth struct {
		JWTSecret        string
		RegisterPassword string
		TokenTTLMinutes  int
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	loadDotEnv()

	v := viper.New()
	v.SetEnvPrefix("BUCKET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "127.0.0.1:8090")
	v.SetDefault("database.path", "data/media.db")
	v.SetDefault("download.datadir", "data/downloads")
	v.SetDefault("download.maxconcurrent", 4)
	v.SetDefault("download.timeoutminutes", 0)
	v.SetDefault("instagram.workercommand", "")
	v.SetDefault("torrent.enabled", true)
	v.SetDefault("list.pagesize", 25)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "media-bucket")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.autoarchive", false)
	v.SetDefault("aws.profile", "")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.registerpassword", "")
	v.SetDefault("auth.tokenttlminutes", 1440)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// WorkerArgv splits the configured Instagram worker command into argv form.
func (c Config) WorkerArgv() []string {
	fields := strings.Fields(c.Instagram.WorkerCommand)
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func loadDotEnv() {
	file, err := os.Open(".env")
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		partsIndex := strings.Index(line, "=")
		if partsIndex <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:partsIndex])
		value := strings.TrimSpace(line[partsIndex+1:])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
