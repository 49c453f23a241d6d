package api

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/convocommerce/backend/platform/apierr"
)

// Recovery catches a panicking handler and renders it as the standardized
// {error:{code,message,details}} envelope (spec.md §6/§7) instead of
// crashing the worker goroutine serving the request. Grounded on the
// teacher's ui/rest/middleware/recovery.go, generalized from its
// utils.ResponseData/pkg/error shape onto platform/apierr, which every
// other handler in this module already uses.
func Recovery() fiber.Handler {
	return func(c *fiber.Ctx) (finalErr error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			logrus.Errorf("[api] panic recovered: %v", r)

			var typed *apierr.Typed
			if coded, ok := r.(apierr.Coded); ok {
				typed = &apierr.Typed{Code: coded.ErrCode(), Message: coded.Error(), Status: coded.StatusCode()}
			} else if err, ok := r.(error); ok {
				typed = apierr.Internal(err.Error())
			} else {
				typed = apierr.Internal(fmt.Sprintf("%v", r))
			}

			status, envelope := apierr.ToEnvelope(typed)
			finalErr = c.Status(status).JSON(envelope)
		}()

		return c.Next()
	}
}
