package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/smartcareconnect/smartcare-api/api"
	"github.com/smartcareconnect/smartcare-api/chat"
	"github.com/smartcareconnect/smartcare-api/config"
	"github.com/smartcareconnect/smartcare-api/databases"
	"github.com/smartcareconnect/smartcare-api/email"
	"github.com/smartcareconnect/smartcare-api/models"
	"github.com/smartcareconnect/smartcare-api/ratelimit"
	"github.com/smartcareconnect/smartcare-api/storage"
	"github.com/smartcareconnect/smartcare-api/twilio"
)

var validate = validator.New()

var errBlobsNotConfigured = errors.New("blob storage is not configured")

// App stores the router and db connection, so it can be reused
type App struct {
	Router *mux.Router
	Config config.Config

	// Blobs stores chat attachments and voice clips
	Blobs storage.Uploader
	// Mailer is nil when SendGrid is not configured
	Mailer email.Sender
	// Minter is nil when call credentials are not configured
	Minter TokenMinter
	// Limiter guards the call token endpoint
	Limiter ratelimit.Limiter
	// Memory is set when Limiter is the in-process limiter, so it can be pruned
	Memory *ratelimit.Memory
	// Sync is the message synchronizer behind the chat routes
	Sync *chat.Synchronizer

	client   databases.ClientHelper
	dbHelper databases.DatabaseHelper
	redis    *redis.Client
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	// setup go-guardian for middleware
	m := api.MiddlewareDB{
		Users:   databases.NewUserDatabase(a.dbHelper),
		Doctors: databases.NewDoctorDatabase(a.dbHelper),
	}
	m.SetupGoGuardian()

	if a.Sync == nil {
		blobs := a.Blobs
		if blobs == nil {
			blobs = storage.Unavailable(errBlobsNotConfigured)
		}
		a.Sync = chat.NewSynchronizer(databases.NewMessageDatabase(a.dbHelper), blobs)
	}

	r := mux.NewRouter()
	r.NotFoundHandler = api.NotFoundHandler()
	r.MethodNotAllowedHandler = api.MethodNotAllowed()

	msg := Message{DB: databases.NewMessageDatabase(a.dbHelper), Sync: a.Sync}
	appt := Appointment{DB: databases.NewAppointmentDatabase(a.dbHelper)}
	u := User{DB: databases.NewUserDatabase(a.dbHelper), Mailer: a.Mailer}
	d := Doctor{DB: databases.NewDoctorDatabase(a.dbHelper), Mailer: a.Mailer}
	e := Email{Sender: a.Mailer}
	t := Twilio{Minter: a.Minter, Limiter: a.Limiter}
	cloudinaryHandler := CloudinaryHandler{APISecret: a.Config.CloudinaryAPISecret, UploadPreset: a.Config.CloudinaryUploadPreset}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	// the websocket outlives any request timeout
	r.Handle("/ws/messages/{appointmentId}", api.Middleware(http.HandlerFunc(msg.MessagesWebSocketHandler))).Methods("GET")

	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Use(api.TimeoutMiddleware(a.requestTimeout()))

	api.HandleMethods(apiRouter, "/register", http.HandlerFunc(u.RegisterHandler), "POST")
	api.HandleMethods(apiRouter, "/login", http.HandlerFunc(u.LoginHandler), "POST")
	api.HandleMethods(apiRouter, "/doctor-register", http.HandlerFunc(d.RegisterDoctorHandler), "POST")
	api.HandleMethods(apiRouter, "/doctor-login", http.HandlerFunc(d.LoginDoctorHandler), "POST")
	api.HandleMethods(apiRouter, "/logout", api.Middleware(http.HandlerFunc(api.RevokeToken)), "POST")

	api.HandleMethods(apiRouter, "/doctors", http.HandlerFunc(d.DoctorsHandler), "GET")
	api.HandleMethods(apiRouter, "/doctor/{id}", http.HandlerFunc(d.DoctorByIDHandler), "GET")
	api.HandleMethods(apiRouter, "/check-nmc", http.HandlerFunc(d.CheckNMCHandler), "GET")
	api.HandleMethods(apiRouter, "/check-unique", http.HandlerFunc(d.CheckUniqueHandler), "GET")

	apiRouter.HandleFunc("/appointments", appt.CreateAppointmentHandler).Methods("POST")
	apiRouter.Handle("/appointments", api.Middleware(http.HandlerFunc(appt.AppointmentsHandler))).Methods("GET")
	apiRouter.Handle("/appointments", api.MethodNotAllowed("POST", "GET"))

	api.HandleMethods(apiRouter, "/send-email", http.HandlerFunc(e.SendEmailHandler), "POST")
	api.HandleMethods(apiRouter, "/twilio/token", api.Middleware(http.HandlerFunc(t.TokenHandler)), "GET")
	api.HandleMethods(apiRouter, "/uploads/signature", api.Middleware(http.HandlerFunc(cloudinaryHandler.GenerateSignature)), "POST")

	// registered before {appointmentId} so "unread" is not taken for an id
	api.HandleMethods(apiRouter, "/messages/unread", api.Middleware(http.HandlerFunc(msg.UnreadHandler)), "GET")
	apiRouter.Handle("/messages/{appointmentId}", api.Middleware(http.HandlerFunc(msg.MessagesHandler))).Methods("GET")
	apiRouter.Handle("/messages/{appointmentId}", api.Middleware(http.HandlerFunc(msg.SendMessageHandler))).Methods("POST")
	apiRouter.Handle("/messages/{appointmentId}", api.MethodNotAllowed("GET", "POST"))

	r.Use(api.LoggingMiddleware)
	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize(ctx context.Context) error {
	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().Errorw("failed to create new client", "error", err)
		return err
	}

	a.client = client
	a.dbHelper = databases.NewDatabase(&a.Config, client)

	connectCtx, cancel := api.WithQueryTimeout(ctx)
	defer cancel()
	err = client.Connect(connectCtx)
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().Errorw("failed to connect to database", "error", err)
		return err
	}
	zap.S().Info("smartcare-api has connected to the database")

	a.setupIntegrations(ctx)

	// initialize api router
	a.initializeRoutes()
	return nil
}

// setupIntegrations wires the optional services. None of them keeps the api
// from booting, the routes that need them answer 500 instead.
func (a *App) setupIntegrations(ctx context.Context) {
	blobs, err := storage.New(&a.Config)
	if err != nil {
		zap.S().Warnw("blob storage is not configured, attachments will fail", "backend", a.Config.BlobBackend, "error", err)
		blobs = storage.Unavailable(err)
	}
	a.Blobs = blobs

	if mailer, err := email.NewSendGrid(a.Config.SendGridAPIKey, a.Config.EmailFromName, a.Config.EmailFromAddress); err != nil {
		zap.S().Warnw("email is not configured", "error", err)
	} else {
		a.Mailer = mailer
	}

	minter, err := twilio.NewMinter(twilio.Credentials{
		AccountSID: a.Config.TwilioAccountSID,
		APIKey:     a.Config.TwilioAPIKey,
		APISecret:  a.Config.TwilioAPISecret,
	}, a.Config.TokenTTL)
	if err != nil {
		zap.S().Warnw("call tokens are not configured", "error", err)
	} else {
		a.Minter = minter
	}

	a.Limiter = a.tokenLimiter(ctx)
	a.Sync = chat.NewSynchronizer(databases.NewMessageDatabase(a.dbHelper), a.Blobs)
}

// tokenLimiter shares the budget through redis when REDIS_URL is set and
// reachable, otherwise it counts in process
func (a *App) tokenLimiter(ctx context.Context) ratelimit.Limiter {
	if a.Config.RedisURL != "" {
		opts, err := redis.ParseURL(a.Config.RedisURL)
		if err != nil {
			zap.S().Warnw("invalid REDIS_URL, falling back to in-memory rate limiting", "error", err)
		} else {
			rdb := redis.NewClient(opts)
			pingCtx, cancel := api.WithQueryTimeout(ctx)
			defer cancel()
			if err := rdb.Ping(pingCtx).Err(); err != nil {
				zap.S().Warnw("redis unreachable, falling back to in-memory rate limiting", "error", err)
				_ = rdb.Close()
			} else {
				a.redis = rdb
				return ratelimit.NewRedis(rdb, "ratelimit:twilio-token:", a.Config.TokenRateLimit, a.Config.TokenRateWindow)
			}
		}
	}
	a.Memory = ratelimit.NewMemory(a.Config.TokenRateLimit, a.Config.TokenRateWindow)
	return a.Memory
}

// AppointmentDB exposes the appointment store to background jobs
func (a *App) AppointmentDB() databases.AppointmentDatabase {
	return databases.NewAppointmentDatabase(a.dbHelper)
}

// Close releases the database and redis connections
func (a *App) Close(ctx context.Context) {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			zap.S().Warnw("failed to close redis", "error", err)
		}
	}
	if a.client != nil {
		if err := a.client.Disconnect(ctx); err != nil {
			zap.S().Warnw("failed to disconnect from database", "error", err)
		}
	}
}

func (a *App) requestTimeout() time.Duration {
	if a.Config.RequestTimeout > 0 {
		return a.Config.RequestTimeout
	}
	return 30 * time.Second
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}

// Redis is the shared redis client, nil when REDIS_URL is unset or unreachable
func (a *App) Redis() *redis.Client {
	return a.redis
}
