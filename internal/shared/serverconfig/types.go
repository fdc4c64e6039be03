package serverconfig

import "time"

type Config struct {
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Save       SaveConfig       `yaml:"save" mapstructure:"save"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	HTTPServer HTTPServerConfig `yaml:"httpserver" mapstructure:"httpserver"`
	GRPCServer GRPCServerConfig `yaml:"grpcserver" mapstructure:"grpcserver"`
	MongoDB    MongoDBConfig    `yaml:"mongodb" mapstructure:"mongodb"`
	MySQL      MySQLConfig      `yaml:"mysql" mapstructure:"mysql"`
	Security   SecurityConfig   `yaml:"security" mapstructure:"security"`
}

type LogConfig struct {
	FileDir    string `yaml:"file_dir" mapstructure:"file_dir"`
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"` // MB
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"` // days
	Compress   bool   `yaml:"compress" mapstructure:"compress"`
	Level      string `yaml:"level" mapstructure:"level"` // debug/info/warn/error...
	Dev        bool   `yaml:"dev" mapstructure:"dev"`
}

// SaveConfig 描述要打开的存档文件。
type SaveConfig struct {
	Path   string `yaml:"path" mapstructure:"path"`
	Cipher string `yaml:"cipher" mapstructure:"cipher"` // plain / xor / aes
	AESKey string `yaml:"aes_key" mapstructure:"aes_key"`
	Watch  bool   `yaml:"watch" mapstructure:"watch"`
	// WatchDebounce 同一文件连续写入的合并窗口。
	WatchDebounce time.Duration `yaml:"watch_debounce" mapstructure:"watch_debounce"`
}

// CacheConfig 对应懒加载缓存参数。
type CacheConfig struct {
	ObjectCountThreshold int  `yaml:"object_count_threshold" mapstructure:"object_count_threshold"`
	Workers              int  `yaml:"workers" mapstructure:"workers"` // <=0 表示 max(1, NumCPU-2)
	Preload              bool `yaml:"preload" mapstructure:"preload"`
}

type HTTPServerConfig struct {
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`
}

type GRPCServerConfig struct {
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`
}

type MongoDBConfig struct {
	URI             string `yaml:"uri" mapstructure:"uri"`
	Database        string `yaml:"database" mapstructure:"database"`
	ConnectTimeoutS int    `yaml:"connect_timeout_s" mapstructure:"connect_timeout_s"`
}

type MySQLConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	DBName   string `yaml:"dbname" mapstructure:"dbname"`
	Charset  string `yaml:"charset" mapstructure:"charset"`
	MaxIdle  int    `yaml:"max_idle" mapstructure:"max_idle"`
	MaxConn  int    `yaml:"max_conn" mapstructure:"max_conn"`
}

type SecurityConfig struct {
	JWTSecret string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
}
