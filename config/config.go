package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/swapmarket/swapd/internal/core/domain"
)

const (
	// HTTPListeningPortKey is the port where the HTTP interface will listen on
	HTTPListeningPortKey = "HTTP_LISTENING_PORT"
	// DatadirKey is the local data directory to store the internal state of the daemon
	DatadirKey = "DATA_DIR_PATH"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// FeeSinkAddressKey is the address collecting the per-fill fee
	FeeSinkAddressKey = "FEE_SINK_ADDRESS"
	// SettlementAddressKey is the spender address makers pre-authorize for token source legs
	SettlementAddressKey = "SETTLEMENT_ADDRESS"
	// LedgerEndpointKey is the url of the remote ledger node. Empty means the embedded in-memory ledger
	LedgerEndpointKey = "LEDGER_ENDPOINT"
	// LedgerRequestTimeoutKey are the milliseconds to wait for ledger responses before timeouts
	LedgerRequestTimeoutKey = "LEDGER_REQUEST_TIMEOUT"
	// LedgerRequestLimitKey is the number of requests per second towards the ledger node
	LedgerRequestLimitKey = "LEDGER_REQUEST_LIMIT"
	// NoPersistenceKey keeps all offers in memory, for development only
	NoPersistenceKey = "NO_PERSISTENCE"

	DbLocation = "db"
)

var vip *viper.Viper

func init() {
	vip = viper.New()
	vip.SetEnvPrefix("SWAPD")
	vip.AutomaticEnv()

	vip.SetDefault(HTTPListeningPortKey, 9945)
	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(DatadirKey, defaultDatadir())
	vip.SetDefault(FeeSinkAddressKey, "")
	vip.SetDefault(SettlementAddressKey, "")
	vip.SetDefault(LedgerEndpointKey, "")
	vip.SetDefault(LedgerRequestTimeoutKey, 15000)
	vip.SetDefault(LedgerRequestLimitKey, 10)
	vip.SetDefault(NoPersistenceKey, false)

	if err := validate(); err != nil {
		log.WithError(err).Panic("error while validating config")
	}

	if err := initDatadir(); err != nil {
		log.WithError(err).Panic("error while creating datadir")
	}
}

// GetString ...
func GetString(key string) string {
	return vip.GetString(key)
}

// GetInt ...
func GetInt(key string) int {
	return vip.GetInt(key)
}

// GetDuration returns the value of the key in milliseconds.
func GetDuration(key string) time.Duration {
	return time.Duration(vip.GetInt(key)) * time.Millisecond
}

// GetBool ...
func GetBool(key string) bool {
	return vip.GetBool(key)
}

// Set a value for the given key
func Set(key string, value interface{}) {
	vip.Set(key, value)
}

// GetDatadir returns the data directory of the daemon
func GetDatadir() string {
	return GetString(DatadirKey)
}

// GetFeeSinkAddress returns the configured fee sink, defaulting to the
// native-asset sentinel (burning fees) when unset.
func GetFeeSinkAddress() string {
	if addr := GetString(FeeSinkAddressKey); addr != "" {
		return addr
	}
	return domain.NativeAsset
}

// GetSettlementAddress returns the configured settlement spender address,
// defaulting to the fee sink when unset.
func GetSettlementAddress() string {
	if addr := GetString(SettlementAddressKey); addr != "" {
		return addr
	}
	return GetFeeSinkAddress()
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("datadir must not be null")
	}

	if port := GetInt(HTTPListeningPortKey); port <= 0 || port > 65535 {
		return fmt.Errorf("http listening port is out of range")
	}

	if ledgerEndpoint := GetString(LedgerEndpointKey); ledgerEndpoint != "" {
		if _, err := url.Parse(ledgerEndpoint); err != nil {
			return fmt.Errorf("ledger endpoint is not a valid url: %s", err)
		}
	}

	if limit := GetInt(LedgerRequestLimitKey); limit <= 0 {
		return fmt.Errorf("ledger request limit must be a positive number")
	}
	return nil
}

func initDatadir() error {
	return makeDirectoryIfNotExists(filepath.Join(GetDatadir(), DbLocation))
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

func defaultDatadir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".swapd"
	}
	return filepath.Join(home, ".swapd")
}
