package config

type EnvVars struct {
	AppName    string `yaml:"app_name" env:"APP_NAME" env-default:"HR Admin"`
	Env        string `yaml:"env" env:"ENV" env-default:"DEV"`
	DataFolder string `yaml:"data_folder" env:"FOLDER" env-default:"./data"`
	LogLevel   string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	if e.Env == "" {
		return "DEV"
	}
	return e.Env
}

func (e EnvVars) GetDataFolder() string {
	return e.DataFolder
}

func (e EnvVars) GetLogLevel() string {
	return e.LogLevel
}
