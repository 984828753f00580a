package hound

// Config for scanhound
type Config struct {
	URL            string   `toml:"url"`
	AllowedURLs    []string `toml:"allowed_urls"`  // considered 'in scope' for crawling
	IgnoredURLs    []string `toml:"ignored_urls"`  // will not crawl (the default for non AllowedURLs)
	ExcludedURLs   []string `toml:"excluded_urls"` // will not access
	ExcludedURIs   []string `toml:"excluded_uris"` // paths we never request (logout etc)
	DataPath       string   `toml:"data_path"`
	Output         string   `toml:"output"`
	XLSXPath       string   `toml:"xlsx"`
	CatalogPath    string   `toml:"catalog"`
	Workers        int      `toml:"workers"`
	MaxSpiderPages int64    `toml:"max_spider_pages"`
	TimeoutSeconds int      `toml:"timeout"`
	Proxy          string   `toml:"proxy"`
	UserAgent      string   `toml:"user_agent"`
	SkipTLSVerify  bool     `toml:"skip_tls_verify"`
	IncludeDebug   bool     `toml:"include_debug"`
	SpillThreshold int      `toml:"spill_threshold"`
	Checkpoint     bool     `toml:"checkpoint"` // persist findings to badger under DataPath
	RecordLinks    bool     `toml:"record_links"`
}

// DefaultConfig values, URL must still be set
func DefaultConfig() *Config {
	return &Config{
		DataPath:       "scanhoundtmp",
		Workers:        8,
		MaxSpiderPages: DefaultMaxSpiderPages,
		TimeoutSeconds: 10,
		UserAgent:      "Mozilla/5.0 (compatible; scanhound/0.1)",
		IncludeDebug:   true,
		SpillThreshold: DefaultSpillThreshold,
	}
}
