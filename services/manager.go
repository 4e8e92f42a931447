package services

import (
	"tableside_server/bus"
	"tableside_server/database"
	"tableside_server/structs"

	"github.com/MonkyMars/gecho"
	"github.com/redis/go-redis/v9"
)

type ServiceManager struct {
	CacheService  *CacheService
	ClientState   ClientStateStore
	HealthService *HealthService
	OrderService  *OrderService
	OrderWriter   *OrderWriter
	StatusService *StatusService
	Surfaces      *SurfaceHub
}

func NewServiceManager(logger *gecho.Logger, cfg *structs.Config, db *database.DB, redisClient *redis.Client, b bus.Bus) *ServiceManager {
	store := database.NewOrderStore(db, b, logger, cfg.Ordering.StoreStatementTimeout)

	cacheService := NewCacheService(logger, redisClient)
	clientState := NewRedisClientState(cacheService, logger, cfg.Cache.ClientStateTTL, cfg.Ordering.HistorySize)
	healthService := NewHealthService(logger, db, cacheService, b)
	orderService := NewOrderService(logger, store)
	orderWriter := NewOrderWriter(logger, cfg.Ordering, store, clientState)
	statusService := NewStatusService(logger, store, cfg.Manager)
	surfaces := NewDefaultSurfaceHub(logger, cfg, store, orderService, b)

	return &ServiceManager{
		CacheService:  cacheService,
		ClientState:   clientState,
		HealthService: healthService,
		OrderService:  orderService,
		OrderWriter:   orderWriter,
		StatusService: statusService,
		Surfaces:      surfaces,
	}
}
