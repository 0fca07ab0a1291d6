package notification

import (
	"context"
	"fmt"
)

// Notifier 通知器接口
type Notifier interface {
	Send(ctx context.Context, notification *Notification) error
}

// Notification 通知消息
type Notification struct {
	Type    string         // webhook, websocket
	To      string         // 接收者（用户 ID / URL）
	Subject string         // 主题
	Body    string         // 内容
	Data    map[string]any // 附加数据
}

// MultiNotifier 多通道通知器，按消息类型分发到对应通道。
// 未配置的通道返回错误，由调用方决定是否忽略（审批通知是尽力而为的）。
type MultiNotifier struct {
	webhook   *WebhookNotifier
	websocket *WebSocketNotifier
}

// NewMultiNotifier 创建多通道通知器
func NewMultiNotifier(webhook *WebhookNotifier, websocket *WebSocketNotifier) *MultiNotifier {
	return &MultiNotifier{
		webhook:   webhook,
		websocket: websocket,
	}
}

// Send 发送通知
func (m *MultiNotifier) Send(ctx context.Context, notification *Notification) error {
	var notifier Notifier

	switch notification.Type {
	case "webhook":
		if m.webhook != nil {
			notifier = m.webhook
		}
	case "websocket":
		if m.websocket != nil {
			notifier = m.websocket
		}
	default:
		return fmt.Errorf("不支持的通知类型: %s", notification.Type)
	}

	if notifier == nil {
		return fmt.Errorf("通知器未配置: %s", notification.Type)
	}

	return notifier.Send(ctx, notification)
}
