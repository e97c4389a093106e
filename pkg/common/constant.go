package common

const (
	EnvKeyGoEnv string = "GO_ENV"

	EnvKeyRunIntegrationTests string = "RUN_INTEGRATION_TESTS"

	EnvKeyLogDir string = "ENERGY_LOG_DIR"

	EnvKeyDbPath string = "ENERGY_DATABASE_PATH"

	EnvKeyRedisAddr string = "ENERGY_REDIS_ADDR"
	EnvKeyAMQPURL   string = "ENERGY_AMQP_URL"

	EnvPrefix string = "ENERGY"

	LoggerNameEnergyCore    string = "energy_core"
	LoggerNameRestfulServer string = "restful_server"
	LoggerNameGrpcServer    string = "grpc_server"
	LoggerNameRealtimeHub   string = "realtime_hub"
	LoggerNameMQPublisher   string = "mq_publisher"
	LoggerNameDB            string = "db"
	LoggerNameServer        string = "server"

	LoggerFieldCategory       string = "category"
	LoggerCategoryCache       string = "cache"
	LoggerCategorySession     string = "session"
	LoggerCategoryStatistics  string = "statistics"
	LoggerCategoryHistory     string = "history"
	LoggerCategoryGateway     string = "gateway"
	LoggerCategoryIngestion   string = "ingestion"
	LoggerCategoryMaintenance string = "maintenance"
)
