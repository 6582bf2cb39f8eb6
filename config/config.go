package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode   string `mapstructure:"mode"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Provider struct {
		GeocodeURL        string        `mapstructure:"geocodeURL"`
		PlacesURL         string        `mapstructure:"placesURL"`
		Language          string        `mapstructure:"language"`
		RequestsPerSecond int           `mapstructure:"requestsPerSecond"`
		Timeout           time.Duration `mapstructure:"timeout"`
	} `mapstructure:"provider"`
	Search struct {
		DefaultRadius      int           `mapstructure:"defaultRadius"`
		DefaultMaxResults  int           `mapstructure:"defaultMaxResults"`
		MaxCategories      int           `mapstructure:"maxCategories"`
		DetailBatchSize    int           `mapstructure:"detailBatchSize"`
		BatchDelay         time.Duration `mapstructure:"batchDelay"`
		GeocodeCacheTTL    time.Duration `mapstructure:"geocodeCacheTTL"`
		ReviewStarCutoff   int           `mapstructure:"reviewStarCutoff"`
		MinReviews         int           `mapstructure:"minReviews"`
		CrunchyReviewCount int           `mapstructure:"crunchyReviewCount"`
	} `mapstructure:"search"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Try to load file-based config
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	// Unmarshal the config into the Config struct
	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}
