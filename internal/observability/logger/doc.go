// Package logger provides a singleton Zap logger with context-based scoping.
//
// # Design Decisions
//
//   - Singleton: una sola instancia global inicializada con Init().
//   - Context Scoping: cada request puede llevar un logger "scoped" con campos
//     adicionales (request_id, subject, provider, etc.) sin crear otro core.
//   - Environments: "dev" usa consola con colores, "prod" usa JSON.
//
// # Usage
//
// Inicialización (una vez en main.go):
//
//	logger.Init(logger.Config{
//	    Env:   os.Getenv("APP_ENV"),
//	    Level: os.Getenv("LOG_LEVEL"),
//	})
//	defer logger.Sync()
//
// En handlers/services (con contexto):
//
//	log := logger.From(ctx)
//	log.Info("login accepted", logger.Subject(userID))
//
// Regla del bridge: nunca loguear credenciales ni access tokens de providers.
// Los helpers de campos no incluyen password/token a propósito.
package logger
