package handler

import (
	"net/http"
	"reflect"
	"strconv"

	"requisiciones/internal/apierror"
	"requisiciones/internal/middleware"
	"requisiciones/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.NewDominio("JSON invalido: "+err.Error(), workflow.KindValidation.String(), nil))
		return false
	}
	return validar(c, req)
}

// bindOptional is bindAndValidate for endpoints whose body may be omitted.
func bindOptional(c *gin.Context, req interface{}) bool {
	if c.Request.ContentLength == 0 {
		return validar(c, req)
	}
	return bindAndValidate(c, req)
}

func validar(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields[fe.Namespace()] = fe.Tag()
			}
		}
		c.JSON(http.StatusBadRequest, apierror.NewValidation(fields))
		return false
	}
	return true
}

// paramID parses a positive numeric path parameter.
func paramID(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		c.JSON(http.StatusBadRequest, apierror.NewDominio("Identificador invalido: "+name, workflow.KindValidation.String(), nil))
		return 0, false
	}
	return uint(v), true
}

// statusFor maps a domain error kind to its HTTP status.
func statusFor(k workflow.Kind) int {
	switch k {
	case workflow.KindNotFound:
		return http.StatusNotFound
	case workflow.KindInvalidState, workflow.KindConflict:
		return http.StatusConflict
	case workflow.KindIncomplete:
		return http.StatusUnprocessableEntity
	case workflow.KindForbidden:
		return http.StatusForbidden
	case workflow.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// responderError writes the envelope for err. Domain errors carry their kind
// and the requisition's current status; anything else is logged and hidden.
func responderError(c *gin.Context, err error) {
	kind := workflow.KindOf(err)
	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		log.Error().
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("path", c.FullPath()).
			Err(err).
			Msg("error interno")
		c.JSON(status, apierror.New("Error interno del servidor"))
		return
	}

	var estado *int
	if e, ok := workflow.EstadoOf(err); ok {
		v := int(e)
		estado = &v
	}
	c.JSON(status, apierror.NewDominio(err.Error(), kind.String(), estado))
}
