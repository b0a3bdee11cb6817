package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/kazi/core/user"
)

// principalMiddleware resolves the principal of the request token and stores it in the context.
func principalMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := loadPrincipal(ctx, svc)
			if err != nil {
				return err
			}
			ctx.Set(contextPrincipalKey, usr)
			return next(ctx)
		}
	}
}

// elevatedMiddleware only lets admins and teachers through.
func elevatedMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextPrincipal(ctx)
			if err != nil {
				return err
			}
			if usr.IsElevated() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
