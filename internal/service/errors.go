package service

import (
	"fmt"

	"github.com/himalthapa1/EduConnect/internal/chat"
)

// 业务层错误均包装 chat 包中的哨兵错误，handler 据此映射 HTTP 状态码。
var (
	ErrDeleteForbidden = fmt.Errorf("%w: only the sender or a room admin may delete a message", chat.ErrAccessDenied)
)
