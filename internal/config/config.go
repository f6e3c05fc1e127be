// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Config holds all configuration for both node types.
// The mapstructure tags are used by Viper to unmarshal the data.
type Config struct {
	NodeID            string        `mapstructure:"node_id"`
	EtcdEndpoints     []string      `mapstructure:"etcd_endpoints" validate:"required,min=1,dive,required"`
	EtcdTimeout       time.Duration `mapstructure:"etcd_timeout" validate:"gt=0"`
	HttpListenAddr    string        `mapstructure:"http_listen_addr" validate:"required"`
	GrpcListenAddr    string        `mapstructure:"grpc_listen_addr" validate:"required"`
	AdvertiseAddr     string        `mapstructure:"advertise_addr"`
	LeaderElectionTTL time.Duration `mapstructure:"leader_election_ttl" validate:"gte=1s"`
	RPCTimeout        time.Duration `mapstructure:"rpc_timeout" validate:"gte=0"`

	// Worker node.
	WorkerCount       int           `mapstructure:"worker_count" validate:"gte=1,lte=1024"`
	LockOSThread      bool          `mapstructure:"lock_os_thread"`
	ModelLoadTimeout  time.Duration `mapstructure:"model_load_timeout" validate:"gte=0"`
	MetricsListenAddr string        `mapstructure:"metrics_listen_addr" validate:"required"`

	// Queue.
	RedisURL  string `mapstructure:"redis_url" validate:"required,url"`
	QueueName string `mapstructure:"queue_name" validate:"required"`

	// Maintenance.
	PruneSchedule   string        `mapstructure:"prune_schedule" validate:"required,cron"`
	RecordRetention time.Duration `mapstructure:"record_retention" validate:"gte=1m"`
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetDefault("node_id", "")
	v.SetDefault("etcd_endpoints", []string{"localhost:2379"})
	v.SetDefault("etcd_timeout", "5s")
	v.SetDefault("http_listen_addr", ":8080")
	v.SetDefault("grpc_listen_addr", ":50052")
	v.SetDefault("advertise_addr", "")
	v.SetDefault("leader_election_ttl", "10s")
	v.SetDefault("rpc_timeout", "30s")
	v.SetDefault("worker_count", 4)
	v.SetDefault("lock_os_thread", false)
	v.SetDefault("model_load_timeout", "10s")
	v.SetDefault("metrics_listen_addr", ":9102")
	v.SetDefault("redis_url", "redis://localhost:6379/0")
	v.SetDefault("queue_name", "nmt:tasks")
	v.SetDefault("prune_schedule", "0 */10 * * * *")
	v.SetDefault("record_retention", "24h")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		// No config file; defaults and env vars apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var schedule = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Validate checks cfg against its validate tags.
func Validate(cfg *Config) error {
	validate := validator.New()
	_ = validate.RegisterValidation("cron", func(fl validator.FieldLevel) bool {
		_, err := schedule.Parse(fl.Field().String())
		return err == nil
	})

	if err := validate.Struct(cfg); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
			fe := validationErrs[0]
			return fmt.Errorf("invalid configuration: %s failed on the '%s' tag", fe.Field(), fe.Tag())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
