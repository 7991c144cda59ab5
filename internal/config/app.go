package config

type AppConfig struct {
	Server ServerConfig
	Jail   JailConfig
	Log    LogConfig
}

func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	serverCfg, err := LoadServer()
	if err != nil {
		return AppConfig{}, err
	}
	jailCfg, err := LoadJail()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Server: serverCfg,
		Jail:   jailCfg,
		Log:    logCfg,
	}, nil
}
