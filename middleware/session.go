package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	CartSessionHeader = "X-Cart-Session"
	ContextCartKey    = "cart_key"
)

// CartSession resolves which cart the request operates on. Signed-in users
// get "user:<id>"; guests get "guest:<id>" from the X-Cart-Session header,
// and a fresh id is issued when the header is missing or malformed. Must run
// after OptionalAuth.
func CartSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID, ok := c.Get(ContextUserID); ok {
			if id, ok := userID.(uuid.UUID); ok {
				c.Set(ContextCartKey, UserCartKey(id))
				c.Next()
				return
			}
		}

		guestID, err := uuid.Parse(c.GetHeader(CartSessionHeader))
		if err != nil {
			guestID = uuid.New()
		}
		c.Header(CartSessionHeader, guestID.String())
		c.Set(ContextCartKey, "guest:"+guestID.String())
		c.Next()
	}
}

func UserCartKey(id uuid.UUID) string {
	return "user:" + id.String()
}

// CartKey returns the key set by CartSession, or "" outside it.
func CartKey(c *gin.Context) string {
	return c.GetString(ContextCartKey)
}
