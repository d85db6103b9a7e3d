package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config data config struct
type Config struct {
	Database *Database `json:"database" yaml:"database"`
	Redis    *Redis    `json:"redis" yaml:"redis"`
	MongoDB  *MongoDB  `json:"mongodb" yaml:"mongodb"`
	Kafka    *Kafka    `json:"kafka" yaml:"kafka"`
	RabbitMQ *RabbitMQ `json:"rabbitmq" yaml:"rabbitmq"`
}

// Database database config struct
type Database struct {
	Driver          string        `json:"driver" yaml:"driver"`
	Source          string        `json:"source" yaml:"source"`
	MaxIdleConn     int           `json:"max_idle_conn" yaml:"max_idle_conn"`
	MaxOpenConn     int           `json:"max_open_conn" yaml:"max_open_conn"`
	ConnMaxLifeTime time.Duration `json:"conn_max_life_time" yaml:"conn_max_life_time"`
}

// Redis redis config struct
type Redis struct {
	Addr         string        `json:"addr" yaml:"addr"`
	Username     string        `json:"username" yaml:"username"`
	Password     string        `json:"password" yaml:"password"`
	Db           int           `json:"db" yaml:"db"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
	DialTimeout  time.Duration `json:"dial_timeout" yaml:"dial_timeout"`
}

// MongoDB mongodb config struct
type MongoDB struct {
	URI            string        `json:"uri" yaml:"uri"`
	ConnectTimeout time.Duration `json:"connect_timeout" yaml:"connect_timeout"`
}

// Kafka kafka config struct
type Kafka struct {
	Brokers        []string      `json:"brokers" yaml:"brokers"`
	ConnectTimeout time.Duration `json:"connect_timeout" yaml:"connect_timeout"`
}

// RabbitMQ rabbitmq config struct
type RabbitMQ struct {
	URL               string        `json:"url" yaml:"url"`
	ConnectionTimeout time.Duration `json:"connection_timeout" yaml:"connection_timeout"`
	HeartbeatInterval time.Duration `json:"heartbeat_interval" yaml:"heartbeat_interval"`
}

// GetConfig reads data configurations
func GetConfig(v *viper.Viper) *Config {
	return &Config{
		Database: getDatabaseConfig(v),
		Redis:    getRedisConfig(v),
		MongoDB:  getMongoDBConfig(v),
		Kafka:    getKafkaConfig(v),
		RabbitMQ: getRabbitMQConfig(v),
	}
}

func getDatabaseConfig(v *viper.Viper) *Database {
	return &Database{
		Driver:          v.GetString("data.database.driver"),
		Source:          v.GetString("data.database.source"),
		MaxIdleConn:     v.GetInt("data.database.max_idle_conn"),
		MaxOpenConn:     v.GetInt("data.database.max_open_conn"),
		ConnMaxLifeTime: v.GetDuration("data.database.conn_max_life_time"),
	}
}

func getRedisConfig(v *viper.Viper) *Redis {
	return &Redis{
		Addr:         v.GetString("data.redis.addr"),
		Username:     v.GetString("data.redis.username"),
		Password:     v.GetString("data.redis.password"),
		Db:           v.GetInt("data.redis.db"),
		ReadTimeout:  getDurationOrDefault(v, "data.redis.read_timeout", 3*time.Second),
		WriteTimeout: getDurationOrDefault(v, "data.redis.write_timeout", 3*time.Second),
		DialTimeout:  getDurationOrDefault(v, "data.redis.dial_timeout", 5*time.Second),
	}
}

func getMongoDBConfig(v *viper.Viper) *MongoDB {
	return &MongoDB{
		URI:            v.GetString("data.mongodb.uri"),
		ConnectTimeout: getDurationOrDefault(v, "data.mongodb.connect_timeout", 10*time.Second),
	}
}

func getKafkaConfig(v *viper.Viper) *Kafka {
	return &Kafka{
		Brokers:        v.GetStringSlice("data.kafka.brokers"),
		ConnectTimeout: getDurationOrDefault(v, "data.kafka.connect_timeout", 5*time.Second),
	}
}

func getRabbitMQConfig(v *viper.Viper) *RabbitMQ {
	return &RabbitMQ{
		URL:               v.GetString("data.rabbitmq.url"),
		ConnectionTimeout: getDurationOrDefault(v, "data.rabbitmq.connection_timeout", 5*time.Second),
		HeartbeatInterval: getDurationOrDefault(v, "data.rabbitmq.heartbeat_interval", 10*time.Second),
	}
}

func getDurationOrDefault(v *viper.Viper, key string, def time.Duration) time.Duration {
	if v.IsSet(key) {
		return v.GetDuration(key)
	}
	return def
}
