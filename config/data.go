package config

import (
	dc "github.com/ncobase/pulse/data/config"

	"github.com/spf13/viper"
)

// Data represents the data configuration
type Data = dc.Config

func getDataConfig(v *viper.Viper) *Data {
	return dc.GetConfig(v)
}
