package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// 規制カテゴリルール。slug集合ごとに合計1点までに制限する。
type RestrictionRule struct {
	Name  string
	Slugs []string
}

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	DatabaseURL      string // あればPostgres接続に最優先で使う
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     int
	PostgresSSLMode  string

	MongoURI string // カートコレクション
	MongoDB  string

	RedisAddr     string // カート表示キャッシュ
	RedisPassword string

	JWTSecret string // 管理APIのJWT署名シークレット

	EmailEndpoint   string // 取引メール送信サーバー
	SlackWebhookURL string // 注文通知

	// 規制カテゴリのslug設定。ハードコードせず環境変数で差し替え可能にする。
	RestrictionRules []RestrictionRule

	GoEnv string // dev/prod
}

// Loadは環境変数から読み込む
func Load() (Config, error) {
	cfg := Config{
		Port: getenv("PORT", "8080"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     getenv("POSTGRES_USER", "postgres"),
		PostgresPassword: getenv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       getenv("POSTGRES_DB", "pharmacy"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		MongoURI: getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getenv("MONGO_DB", "pharmacy"),

		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		EmailEndpoint:   os.Getenv("EMAIL_ENDPOINT"),
		SlackWebhookURL: os.Getenv("SLACK_ORDER_WEBHOOK"),

		GoEnv: getenv("GO_ENV", "dev"),
	}

	pgPort, err := atoiEnv("POSTGRES_PORT", 5432)
	if err != nil {
		return Config{}, err
	}
	cfg.PostgresPort = pgPort

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}

	cfg.RestrictionRules = loadRestrictionRules()

	return cfg, nil
}

// 規制カテゴリはデフォルトを持ちつつ環境変数で上書きできる
func loadRestrictionRules() []RestrictionRule {
	single := splitSlugs(getenv("RESTRICTED_SINGLE_CATEGORY", "2-diarrhoea"))
	group := splitSlugs(getenv("RESTRICTED_CATEGORY_GROUP",
		"opiod-analgesics,sleeping-tablets,paracetamol"))

	rules := make([]RestrictionRule, 0, 2)
	if len(single) > 0 {
		rules = append(rules, RestrictionRule{Name: "single-category", Slugs: single})
	}
	if len(group) > 0 {
		rules = append(rules, RestrictionRule{Name: "restricted-group", Slugs: group})
	}
	return rules
}

func splitSlugs(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoiEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}
