package config

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
	"github.com/tapfed/relayerd/internal/core/application"
	"github.com/tapfed/relayerd/internal/core/domain"
	"github.com/tapfed/relayerd/internal/core/ports"
	badgerdb "github.com/tapfed/relayerd/internal/infrastructure/journal/badger"
	envkeysource "github.com/tapfed/relayerd/internal/infrastructure/keysource/env"
	filekeysource "github.com/tapfed/relayerd/internal/infrastructure/keysource/file"
	evm "github.com/tapfed/relayerd/internal/infrastructure/ledger/evm"
	timescheduler "github.com/tapfed/relayerd/internal/infrastructure/scheduler/gocron"
	"github.com/urfave/cli/v2"
)

var supportedKeySources = supportedType{
	"env":  {},
	"file": {},
}

type Config struct {
	SourceRpc string
	DestRpc   string

	SourceRegistryAddr string
	SourceCipherAddr   string
	DestRegistryAddr   string
	DestCipherAddr     string

	RegistryAbiPath string
	CipherAbiPath   string

	KeySourceType  string
	PrivateKey     string
	PrivateKeyFile string

	PollInterval  int64
	ErrorBackoff  int64
	ReadTimeout   int64
	WaitTimeout   int64
	AuditInterval int64

	RegisterGasLimit uint64
	PostGasLimit     uint64

	Datadir   string
	StrictCid bool
	LogLevel  int

	source    ports.SourceLedger
	dest      ports.DestinationLedger
	journal   domain.JournalRepository
	scheduler ports.SchedulerService
	keySource ports.KeySource
	svc       application.Service
}

func (c *Config) String() string {
	clone := *c
	if clone.PrivateKey != "" {
		clone.PrivateKey = "••••••"
	}
	json, err := json.MarshalIndent(clone, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(json)
}

var (
	defaultPollInterval     = 5
	defaultErrorBackoff     = 10
	defaultReadTimeout      = 15
	defaultWaitTimeout      = 120
	defaultAuditInterval    = 0 // disabled by default
	defaultRegisterGasLimit = 800_000
	defaultPostGasLimit     = 500_000
	defaultKeySourceType    = "env"
	defaultLogLevel         = 4
	defaultStrictCid        = false
)

// env returns a list of strings prefixed with `RELAYERD_`.
// This is used as a syntax sugar for defining env vars.
func env(values ...string) []string {
	envs := make([]string, len(values))

	for i, value := range values {
		envs[i] = fmt.Sprintf("RELAYERD_%s", value)
	}

	return envs
}

var (
	SourceRpc = &cli.StringFlag{
		Usage: "RPC endpoint of the source ledger",
		Name:  "source-rpc", EnvVars: env("SOURCE_RPC"),
	}

	DestRpc = &cli.StringFlag{
		Usage: "RPC endpoint of the destination ledger",
		Name:  "dest-rpc", EnvVars: env("DEST_RPC"),
	}

	SourceRegistryAddr = &cli.StringFlag{
		Usage: "Round registry contract address on the source ledger",
		Name:  "source-registry-addr", EnvVars: env("SOURCE_REGISTRY_ADDR"),
	}

	SourceCipherAddr = &cli.StringFlag{
		Usage: "Cipher store contract address on the source ledger",
		Name:  "source-cipher-addr", EnvVars: env("SOURCE_CIPHER_ADDR"),
	}

	DestRegistryAddr = &cli.StringFlag{
		Usage: "Round registry contract address on the destination ledger",
		Name:  "dest-registry-addr", EnvVars: env("DEST_REGISTRY_ADDR"),
	}

	DestCipherAddr = &cli.StringFlag{
		Usage: "Cipher store contract address on the destination ledger",
		Name:  "dest-cipher-addr", EnvVars: env("DEST_CIPHER_ADDR"),
	}

	RegistryAbiPath = &cli.StringFlag{
		Usage: "Path to a registry contract ABI artifact, fallback to the embedded ABI",
		Name:  "registry-abi-path", EnvVars: env("REGISTRY_ABI_PATH"),
	}

	CipherAbiPath = &cli.StringFlag{
		Usage: "Path to a cipher store ABI artifact, fallback to the embedded ABI",
		Name:  "cipher-abi-path", EnvVars: env("CIPHER_ABI_PATH"),
	}

	KeySourceType = &cli.StringFlag{
		Usage: "Signing key source (env, file)",
		Name:  "key-source-type", EnvVars: env("KEY_SOURCE_TYPE"),
		Value: defaultKeySourceType,
	}

	PrivateKey = &cli.StringFlag{
		Usage: "Hex-encoded destination signing key if RELAYERD_KEY_SOURCE_TYPE is set to env",
		Name:  "private-key", EnvVars: env("PRIVATE_KEY"),
	}

	PrivateKeyFile = &cli.StringFlag{
		Usage: "Path to destination signing key if RELAYERD_KEY_SOURCE_TYPE is set to file",
		Name:  "private-key-file", EnvVars: env("PRIVATE_KEY_FILE"),
	}

	PollInterval = &cli.Int64Flag{
		Usage: "Source polling interval in seconds",
		Name:  "poll-interval", EnvVars: env("POLL_INTERVAL"),
		Value: int64(defaultPollInterval),
	}

	ErrorBackoff = &cli.Int64Flag{
		Usage: "Sleep after a failed cycle in seconds",
		Name:  "error-backoff", EnvVars: env("ERROR_BACKOFF"),
		Value: int64(defaultErrorBackoff),
	}

	ReadTimeout = &cli.Int64Flag{
		Usage: "Timeout for ledger read calls in seconds",
		Name:  "read-timeout", EnvVars: env("READ_TIMEOUT"),
		Value: int64(defaultReadTimeout),
	}

	WaitTimeout = &cli.Int64Flag{
		Usage: "Timeout for transaction confirmation waits in seconds",
		Name:  "wait-timeout", EnvVars: env("WAIT_TIMEOUT"),
		Value: int64(defaultWaitTimeout),
	}

	AuditInterval = &cli.Int64Flag{
		Usage:       "Mirror audit interval in seconds",
		Name:        "audit-interval",
		EnvVars:     env("AUDIT_INTERVAL"),
		Value:       int64(defaultAuditInterval),
		DefaultText: "0 disabled",
	}

	RegisterGasLimit = &cli.Uint64Flag{
		Usage: "Gas limit for registerRound submissions",
		Name:  "register-gas-limit", EnvVars: env("REGISTER_GAS_LIMIT"),
		Value: uint64(defaultRegisterGasLimit),
	}

	PostGasLimit = &cli.Uint64Flag{
		Usage: "Gas limit for postCipher submissions",
		Name:  "post-gas-limit", EnvVars: env("POST_GAS_LIMIT"),
		Value: uint64(defaultPostGasLimit),
	}

	Datadir = &cli.StringFlag{
		Usage:       "Directory for the mirror journal, journal disabled if empty",
		Name:        "datadir",
		EnvVars:     env("DATADIR"),
		DefaultText: "journal disabled",
	}

	StrictCid = &cli.BoolFlag{
		Usage: "Log cipher records whose cid does not parse as a CID",
		Name:  "strict-cid", EnvVars: env("STRICT_CID"),
		Value: defaultStrictCid,
	}

	LogLevel = &cli.IntFlag{
		Usage: "Logging level (0-6, where 6 is trace)",
		Name:  "log-level", EnvVars: env("LOG_LEVEL"),
		Value: defaultLogLevel,
	}
)

var Flags = []cli.Flag{
	SourceRpc,
	DestRpc,
	SourceRegistryAddr,
	SourceCipherAddr,
	DestRegistryAddr,
	DestCipherAddr,
	RegistryAbiPath,
	CipherAbiPath,
	KeySourceType,
	PrivateKey,
	PrivateKeyFile,
	PollInterval,
	ErrorBackoff,
	ReadTimeout,
	WaitTimeout,
	AuditInterval,
	RegisterGasLimit,
	PostGasLimit,
	Datadir,
	StrictCid,
	LogLevel,
}

func LoadConfig(c *cli.Context) (*Config, error) {
	return &Config{
		SourceRpc:          c.String(SourceRpc.Name),
		DestRpc:            c.String(DestRpc.Name),
		SourceRegistryAddr: c.String(SourceRegistryAddr.Name),
		SourceCipherAddr:   c.String(SourceCipherAddr.Name),
		DestRegistryAddr:   c.String(DestRegistryAddr.Name),
		DestCipherAddr:     c.String(DestCipherAddr.Name),
		RegistryAbiPath:    c.String(RegistryAbiPath.Name),
		CipherAbiPath:      c.String(CipherAbiPath.Name),
		KeySourceType:      c.String(KeySourceType.Name),
		PrivateKey:         c.String(PrivateKey.Name),
		PrivateKeyFile:     c.String(PrivateKeyFile.Name),
		PollInterval:       c.Int64(PollInterval.Name),
		ErrorBackoff:       c.Int64(ErrorBackoff.Name),
		ReadTimeout:        c.Int64(ReadTimeout.Name),
		WaitTimeout:        c.Int64(WaitTimeout.Name),
		AuditInterval:      c.Int64(AuditInterval.Name),
		RegisterGasLimit:   c.Uint64(RegisterGasLimit.Name),
		PostGasLimit:       c.Uint64(PostGasLimit.Name),
		Datadir:            c.String(Datadir.Name),
		StrictCid:          c.Bool(StrictCid.Name),
		LogLevel:           c.Int(LogLevel.Name),
	}, nil
}

func (c *Config) Validate() error {
	if c.SourceRpc == "" {
		return fmt.Errorf("missing source ledger RPC endpoint")
	}
	if c.DestRpc == "" {
		return fmt.Errorf("missing destination ledger RPC endpoint")
	}
	for name, addr := range map[string]string{
		"source registry":     c.SourceRegistryAddr,
		"source cipher store": c.SourceCipherAddr,
		"dest registry":       c.DestRegistryAddr,
		"dest cipher store":   c.DestCipherAddr,
	} {
		if addr == "" {
			return fmt.Errorf("missing %s contract address", name)
		}
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("invalid %s contract address: %s", name, addr)
		}
	}
	if !supportedKeySources.supports(c.KeySourceType) {
		return fmt.Errorf(
			"key source type not supported, please select one of: %s", supportedKeySources,
		)
	}
	if c.PollInterval < 1 {
		return fmt.Errorf("invalid poll interval, must be at least 1 second")
	}
	if c.ErrorBackoff < 1 {
		return fmt.Errorf("invalid error backoff, must be at least 1 second")
	}

	if err := c.keySourceService(); err != nil {
		return err
	}
	if err := c.ledgerServices(); err != nil {
		return err
	}
	if err := c.journalService(); err != nil {
		return err
	}
	if err := c.schedulerService(); err != nil {
		return err
	}
	return nil
}

func (c *Config) AppService() (application.Service, error) {
	if c.svc == nil {
		if err := c.appService(); err != nil {
			return nil, err
		}
	}
	return c.svc, nil
}

func (c *Config) keySourceService() error {
	var svc ports.KeySource
	var err error
	switch c.KeySourceType {
	case "env":
		svc, err = envkeysource.NewService(c.PrivateKey)
	case "file":
		svc, err = filekeysource.NewService(c.PrivateKeyFile)
	default:
		err = fmt.Errorf("unknown key source type")
	}
	if err != nil {
		return err
	}

	c.keySource = svc
	return nil
}

func (c *Config) ledgerServices() error {
	ctx := context.Background()

	registryABI, err := c.loadABI(c.RegistryAbiPath, evm.DefaultRegistryABI)
	if err != nil {
		return fmt.Errorf("invalid registry abi: %s", err)
	}
	cipherABI, err := c.loadABI(c.CipherAbiPath, evm.DefaultCipherABI)
	if err != nil {
		return fmt.Errorf("invalid cipher store abi: %s", err)
	}

	key, err := c.keySource.PrivateKey(ctx)
	if err != nil {
		return err
	}

	source, err := evm.Dial(ctx, evm.Config{
		Endpoint:     c.SourceRpc,
		RegistryAddr: common.HexToAddress(c.SourceRegistryAddr),
		CipherAddr:   common.HexToAddress(c.SourceCipherAddr),
		RegistryABI:  registryABI,
		CipherABI:    cipherABI,
		ReadTimeout:  time.Duration(c.ReadTimeout) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to source ledger: %s", err)
	}

	dest, err := evm.Dial(ctx, evm.Config{
		Endpoint:         c.DestRpc,
		RegistryAddr:     common.HexToAddress(c.DestRegistryAddr),
		CipherAddr:       common.HexToAddress(c.DestCipherAddr),
		RegistryABI:      registryABI,
		CipherABI:        cipherABI,
		Key:              key,
		ReadTimeout:      time.Duration(c.ReadTimeout) * time.Second,
		ConfirmTimeout:   time.Duration(c.WaitTimeout) * time.Second,
		RegisterGasLimit: c.RegisterGasLimit,
		PostGasLimit:     c.PostGasLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to destination ledger: %s", err)
	}

	log.Infof("relayer sender: %s", dest.Sender().Hex())

	c.source = source
	c.dest = dest
	return nil
}

func (c *Config) loadABI(path string, fallback func() (abi.ABI, error)) (abi.ABI, error) {
	if path == "" {
		return fallback()
	}
	return evm.LoadABI(path)
}

func (c *Config) journalService() error {
	if c.Datadir == "" {
		return nil
	}

	svc, err := badgerdb.NewJournalRepository(c.Datadir, log.New())
	if err != nil {
		return err
	}

	c.journal = svc
	return nil
}

func (c *Config) schedulerService() error {
	if c.AuditInterval <= 0 {
		return nil
	}

	c.scheduler = timescheduler.NewScheduler()
	return nil
}

func (c *Config) appService() error {
	errorBackoff := backoff.NewConstantBackOff(time.Duration(c.ErrorBackoff) * time.Second)

	svc, err := application.NewService(
		c.source, c.dest, c.journal, c.scheduler,
		time.Duration(c.PollInterval)*time.Second, errorBackoff,
		time.Duration(c.AuditInterval)*time.Second, c.StrictCid,
	)
	if err != nil {
		return err
	}

	c.svc = svc
	return nil
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}
