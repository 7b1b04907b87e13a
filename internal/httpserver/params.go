package httpserver

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"woocart-bridge/internal/domain"
)

const maxBodyBytes = 1 << 20

// count is a whole number sent either as a JSON number or as a numeric
// string; storefront clients send both.
type count int64

func (n *count) UnmarshalJSON(b []byte) error {
	return n.UnmarshalParam(strings.Trim(string(b), `"`))
}

func (n *count) UnmarshalParam(s string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return errNotWhole
	}
	if math.Abs(f) > math.MaxInt32 {
		return errNotWhole
	}
	*n = count(f)
	return nil
}

var errNotWhole = errors.New("not a whole number")

func (n *count) value() int {
	if n == nil {
		return 0
	}
	return int(*n)
}

type itemQuantityRequest struct {
	ItemKey  string `form:"item_key" json:"item_key" binding:"required"`
	Quantity *count `form:"quantity" json:"quantity" binding:"required,min=0,max=2147483647"`
}

type addItemRequest struct {
	ProductID   *count            `form:"product_id" json:"product_id" binding:"required,min=1"`
	Quantity    *count            `form:"quantity" json:"quantity" binding:"omitempty,min=0,max=2147483647"`
	VariationID *count            `form:"variation_id" json:"variation_id" binding:"omitempty,min=0"`
	Variation   map[string]string `form:"variation" json:"variation"`
}

type itemKeyRequest struct {
	ItemKey string `form:"item_key" json:"item_key" binding:"required"`
}

type couponRequest struct {
	Code string `form:"code" json:"code" binding:"required"`
}

// bindRequest fills req from the query string and the body. A JSON body
// overrides query values of the same name; forms are bound together with
// the query.
func bindRequest(c *gin.Context, req any) error {
	if c.Request.Body != nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	}

	var err error
	if c.ContentType() == binding.MIMEJSON && c.Request.ContentLength != 0 {
		if err = binding.MapFormWithTag(req, c.Request.URL.Query(), "form"); err == nil {
			err = c.ShouldBindJSON(req)
		}
	} else {
		err = c.ShouldBindWith(req, binding.Form)
	}
	if err != nil {
		return bindError(err)
	}
	return nil
}

func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		name := snakeCase(fe.Field())
		if fe.Tag() == "required" {
			return domain.Errorf(domain.ErrValidation, "%s is required", name)
		}
		return domain.Errorf(domain.ErrValidation, "%s is out of range", name)
	}
	if errors.Is(err, errNotWhole) {
		return domain.Errorf(domain.ErrValidation, "expected a whole number")
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return domain.Errorf(domain.ErrValidation, "request body too large")
	}
	return domain.Errorf(domain.ErrValidation, "invalid request body")
}

// snakeCase turns a Go field name such as ProductID into product_id.
func snakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 && unicode.IsLower(runes[i-1]) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
