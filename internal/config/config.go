// Package config содержит логику чтения конфигурации сервиса книжного магазина.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса книжного магазина.
//
// Налоговая ставка и стоимость доставки заданы здесь единожды и используются
// как при расчёте предварительной суммы корзины, так и при создании заказа.
type Config struct {
	RunAddress       string        `env:"RUN_ADDRESS"`
	DatabaseURI      string        `env:"DATABASE_URI"`
	GatewayAddress   string        `env:"GATEWAY_ADDRESS"`
	GatewayKeyID     string        `env:"GATEWAY_KEY_ID"`
	GatewayKeySecret string        `env:"GATEWAY_KEY_SECRET"`
	AuthSecret       string        `env:"AUTH_SECRET"`
	Currency         string        `env:"CURRENCY" envDefault:"INR"`
	TaxRate          float64       `env:"TAX_RATE" envDefault:"0.05"`
	ShippingFee      float64       `env:"SHIPPING_FEE" envDefault:"0"`
	SyncInterval     time.Duration `env:"SYNC_INTERVAL"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Значения переменных окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envGatewayAddress := cfg.GatewayAddress

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.GatewayAddress, "r", "", "payment gateway address")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envGatewayAddress != "" {
		cfg.GatewayAddress = envGatewayAddress
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	if cfg.TaxRate < 0 || cfg.TaxRate >= 1 {
		return nil, fmt.Errorf("tax rate out of range: %v", cfg.TaxRate)
	}
	if cfg.ShippingFee < 0 {
		return nil, fmt.Errorf("shipping fee must be non-negative: %v", cfg.ShippingFee)
	}

	return cfg, nil
}

// ShippingFeeCents возвращает стоимость доставки в минимальных единицах валюты.
func (c *Config) ShippingFeeCents() int64 {
	return int64(c.ShippingFee*100 + 0.5)
}
