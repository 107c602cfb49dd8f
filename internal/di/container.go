package di

import (
	"time"

	"github.com/drvarun1995-pixel/sim-bleepy-booking/internal/handler"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/internal/repository"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/internal/service"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/pkg/database"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/pkg/redis"
)

// Container holds all dependencies for the booking service
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *redis.Client

	// Repositories
	BookingRepo     repository.BookingRepository
	EventRepo       repository.EventRepository
	QRCodeRepo      repository.QRCodeRepository
	CertificateRepo repository.CertificateRepository
	ScanGuard       repository.ScanGuard
	Availability    repository.AvailabilityCache

	// Publishers
	EventPublisher service.EventPublisher

	// Services
	BookingService    service.BookingService
	AttendanceService service.AttendanceService
	QRCodeService     service.QRCodeService

	// Handlers
	BookingHandler    *handler.BookingHandler
	AttendanceHandler *handler.AttendanceHandler
	AdminHandler      *handler.AdminHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	DB               *database.PostgresDB
	Redis            *redis.Client
	EventPublisher   service.EventPublisher
	AvailabilityTTL  time.Duration
	BookingConfig    *service.BookingServiceConfig
	AttendanceConfig *service.AttendanceServiceConfig
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:             cfg.DB,
		Redis:          cfg.Redis,
		EventPublisher: cfg.EventPublisher,
	}

	// Initialize repositories
	pool := cfg.DB.Pool()
	c.BookingRepo = repository.NewPostgresBookingRepository(pool)
	c.EventRepo = repository.NewPostgresEventRepository(pool)
	c.QRCodeRepo = repository.NewPostgresQRCodeRepository(pool)
	c.CertificateRepo = repository.NewPostgresCertificateRepository(pool)
	c.ScanGuard = repository.NewRedisScanGuard(cfg.Redis)
	c.Availability = repository.NewRedisAvailabilityCache(cfg.Redis, cfg.AvailabilityTTL)

	// Initialize services
	c.BookingService = service.NewBookingService(
		c.BookingRepo,
		c.EventRepo,
		c.CertificateRepo,
		c.Availability,
		c.EventPublisher,
		cfg.BookingConfig,
	)
	c.AttendanceService = service.NewAttendanceService(
		c.BookingRepo,
		c.EventRepo,
		c.QRCodeRepo,
		c.ScanGuard,
		c.EventPublisher,
		cfg.AttendanceConfig,
	)
	c.QRCodeService = service.NewQRCodeService(c.QRCodeRepo, c.EventRepo)

	// Initialize handlers
	c.BookingHandler = handler.NewBookingHandler(c.BookingService)
	c.AttendanceHandler = handler.NewAttendanceHandler(c.AttendanceService)
	c.AdminHandler = handler.NewAdminHandler(c.BookingService, c.QRCodeService)

	return c
}
