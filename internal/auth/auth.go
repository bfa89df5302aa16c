package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/himalthapa1/EduConnect/internal/chat"
	"github.com/himalthapa1/EduConnect/internal/models"
)

type Claims struct {
	UserID uint `json:"uid"`
	jwt.RegisteredClaims
}

func GenerateAccessToken(userID uint, secret string, ttlMinutes int) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttlMinutes) * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseAccessToken(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// Verifier 校验访问令牌并确认用户存在，失败统一返回 chat.ErrAuth。
type Verifier struct {
	Secret string
	DB     *gorm.DB
}

func NewVerifier(secret string, db *gorm.DB) *Verifier {
	return &Verifier{Secret: secret, DB: db}
}

// Verify maps a bearer credential to a user id.
func (v *Verifier) Verify(ctx context.Context, token string) (uint, error) {
	if strings.TrimSpace(token) == "" {
		return 0, fmt.Errorf("%w: missing token", chat.ErrAuth)
	}
	claims, err := ParseAccessToken(token, v.Secret)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", chat.ErrAuth, err)
	}
	var user models.User
	if err := v.DB.WithContext(ctx).Select("id").First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("%w: user %d not found", chat.ErrAuth, claims.UserID)
		}
		return 0, fmt.Errorf("lookup user %d: %w", claims.UserID, err)
	}
	return user.ID, nil
}

// TokenFromRequest 读取 token 查询参数，其次是 Authorization: Bearer 头。
// 浏览器的 WebSocket 无法设置请求头，所以查询参数优先。
func TokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	authz := r.Header.Get("Authorization")
	if len(authz) > 7 && strings.EqualFold(authz[:7], "bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	return ""
}

func AuthMiddleware(v *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		userID, err := v.Verify(c.Request.Context(), tokenStr)
		if err != nil {
			if errors.Is(err, chat.ErrAuth) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			log.Error().Err(err).Msg("verify token")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.Set("userID", userID)
		c.Next()
	}
}

func GetUserID(c *gin.Context) uint {
	if v, ok := c.Get("userID"); ok {
		if id, ok2 := v.(uint); ok2 {
			return id
		}
	}
	return 0
}
