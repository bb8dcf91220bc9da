package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Options struct {
	SalesPath      string  `validate:"required"`
	ShopsPath      string  `validate:"required"`
	DateLayout     string  `validate:"required"`
	OutputPath     string  `validate:"required,exportpath"`
	FullOutputPath string  `validate:"omitempty,exportpath"`
	ChartShopID    int     `validate:"gte=-1"`
	ChartPath      string  `validate:"required_unless=ChartShopID -1"`
	MinMonths      int     `validate:"gte=2"`
	Workers        int     `validate:"gte=1"`
	IntervalWidth  float64 `validate:"gt=0,lt=1"`
	MaxItemCount   float64 `validate:"gt=0"`
	MaxItemPrice   float64 `validate:"gt=0"`
	LogLevel       string  `validate:"oneof=debug info warn error"`
	DataBaseDSN    string
	MigrationsDir  string `validate:"required_with=DataBaseDSN"`
	MetricsFile    string
}

func NewOptions() *Options {
	return new(Options)
}

// ParseFlags loads the .env file, registers every option with its environment
// default, parses args and validates the result.
func (o *Options) ParseFlags(args []string) error {
	loadEnvFile()

	fs := flag.NewFlagSet("salesforecast", flag.ContinueOnError)

	fs.StringVar(&o.SalesPath, "sales", getEnvOrDefault("SALES_PATH", "sales.csv"), "daily transactions file (.csv, .zip or .tar)")
	fs.StringVar(&o.ShopsPath, "shops", getEnvOrDefault("SHOPS_PATH", "shops.csv"), "shop metadata file (.csv, .zip or .tar)")
	fs.StringVar(&o.DateLayout, "date-layout", getEnvOrDefault("DATE_LAYOUT", "02.01.2006"), "day-month-year layout of the date column")
	fs.StringVar(&o.OutputPath, "o", getEnvOrDefault("OUTPUT_PATH", "forecast.csv"), "next-month forecast output (.csv, .xlsx or .zip)")
	fs.StringVar(&o.FullOutputPath, "full", getEnvOrDefault("FULL_OUTPUT_PATH", ""), "optional output with every fitted and forecast point")
	fs.IntVar(&o.ChartShopID, "chart-shop", getEnvInt("CHART_SHOP_ID", -1), "shop to chart, -1 disables the chart")
	fs.StringVar(&o.ChartPath, "chart", getEnvOrDefault("CHART_PATH", "forecast.png"), "chart output (.png or .svg)")
	fs.IntVar(&o.MinMonths, "min-months", getEnvInt("MIN_MONTHS", 3), "minimum monthly observations required to forecast a shop")
	fs.IntVar(&o.Workers, "w", getEnvInt("FORECAST_WORKERS", runtime.NumCPU()), "shops fitted concurrently")
	fs.Float64Var(&o.IntervalWidth, "interval", getEnvFloat("INTERVAL_WIDTH", 0.8), "width of the uncertainty interval")
	fs.Float64Var(&o.MaxItemCount, "max-count", getEnvFloat("MAX_ITEM_COUNT", 1000), "exclusive upper bound for item_cnt_day")
	fs.Float64Var(&o.MaxItemPrice, "max-price", getEnvFloat("MAX_ITEM_PRICE", 250000), "exclusive upper bound for item_price")
	fs.StringVar(&o.LogLevel, "l", getEnvOrDefault("LOG_LEVEL", "info"), "log level")
	fs.StringVar(&o.DataBaseDSN, "d", getEnvOrDefault("DATABASE_URI", ""), "database connection string, empty disables the database sink")
	fs.StringVar(&o.MigrationsDir, "migrations", getEnvOrDefault("MIGRATIONS_DIR", "migrations"), "directory with SQL migrations")
	fs.StringVar(&o.MetricsFile, "metrics", getEnvOrDefault("METRICS_FILE", ""), "write run metrics in text exposition format to this file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	return o.Validate()
}

// Validate checks option values against their struct tags.
func (o *Options) Validate() error {
	v := validator.New()
	if err := v.RegisterValidation("exportpath", isExportPath); err != nil {
		return err
	}

	if err := v.Struct(o); err != nil {
		var msgs []string
		for _, fe := range err.(validator.ValidationErrors) {
			msgs = append(msgs, formatValidationError(fe))
		}
		return fmt.Errorf("invalid options: %s", strings.Join(msgs, "; "))
	}
	return nil
}

func (o *Options) DSN() string {
	return o.DataBaseDSN
}

func isExportPath(fl validator.FieldLevel) bool {
	p := strings.ToLower(fl.Field().String())
	return strings.HasSuffix(p, ".csv") || strings.HasSuffix(p, ".xlsx") || strings.HasSuffix(p, ".zip")
}

func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_with", "required_unless":
		return fmt.Sprintf("%s is required", fe.Field())
	case "exportpath":
		return fmt.Sprintf("%s must end in .csv, .xlsx or .zip", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s failed %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value())
	}
}

// getEnvOrDefault reads an environment variable or returns a default value if the variable is not set or is empty.
func getEnvOrDefault(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := getEnvOrDefault(key, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("ignoring %s=%q: %v", key, raw, err)
		return defaultValue
	}
	return v
}

func getEnvFloat(key string, defaultValue float64) float64 {
	raw := getEnvOrDefault(key, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("ignoring %s=%q: %v", key, raw, err)
		return defaultValue
	}
	return v
}

// loadEnvFile loads environment variables from ENV_FILE, or .env in the working directory.
func loadEnvFile() {
	envPath := getEnvOrDefault("ENV_FILE", ".env")

	if err := godotenv.Load(envPath); err != nil {
		log.Printf("No .env file found at %s, proceeding without it", envPath)
	} else {
		log.Printf(".env file loaded from %s", envPath)
	}
}
