package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/kotae/data/documents.db"
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Retrieval.MaxContextChars == 0 {
		cfg.Retrieval.MaxContextChars = 4000
	}
	if cfg.Retrieval.MinScore == 0 {
		cfg.Retrieval.MinScore = 0.05
	}
	if cfg.Retrieval.PreviewChars == 0 {
		cfg.Retrieval.PreviewChars = 200
	}
	if cfg.Generator.Backend == "" {
		cfg.Generator.Backend = "stub"
	}
	if cfg.Generator.Model == "" {
		cfg.Generator.Model = "llama3.2"
	}
	if cfg.Generator.BaseURL == "" {
		cfg.Generator.BaseURL = "http://localhost:11434"
	}
	if cfg.Generator.TimeoutSeconds == 0 {
		cfg.Generator.TimeoutSeconds = 60
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
