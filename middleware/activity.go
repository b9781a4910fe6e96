package middleware

import (
	"support_directory_go/services"

	"github.com/labstack/echo/v4"
)

const ContextKeyActor = "actor"

// ActivityContext captures who is calling for activity logging and
// authorization. Anonymous callers get an actor with request metadata only.
func ActivityContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor := services.Actor{}
			if user := GetCurrentUser(c); user != nil {
				actor = services.ActorFromUser(user)
			}
			actor.IPAddress = c.RealIP()
			actor.UserAgent = c.Request().UserAgent()

			c.Set(ContextKeyActor, actor)
			return next(c)
		}
	}
}

// GetActor retrieves the actor from the request
func GetActor(c echo.Context) services.Actor {
	if actor, ok := c.Get(ContextKeyActor).(services.Actor); ok {
		return actor
	}
	if user := GetCurrentUser(c); user != nil {
		return services.ActorFromUser(user)
	}
	return services.Actor{}
}
