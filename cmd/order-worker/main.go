package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/DmitriyRebrykov/BlockWear/internal/config"
	"github.com/DmitriyRebrykov/BlockWear/internal/datamodels/order"
	"github.com/DmitriyRebrykov/BlockWear/internal/infra/mq"
	"github.com/DmitriyRebrykov/BlockWear/internal/logger"
	"github.com/DmitriyRebrykov/BlockWear/internal/repository/mysql"
	"github.com/DmitriyRebrykov/BlockWear/internal/service"
)

// order-worker 消费订单事件队列，目前负责发送订单确认/退款通知。
// 通知渠道尚未接入，先落结构化日志，保证事件流水可查。
func main() {
	var (
		configPath = flag.String("config", "", "配置文件路径，留空使用默认配置")
		debug      = flag.Bool("debug", false, "开发模式日志")
	)
	flag.Parse()

	if err := logger.Init(*debug); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zap.L().Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zap.L().Fatal("load config failed", zap.Error(err))
	}

	db := mysql.Init(&cfg.MySQL)
	mqConn := mq.Init(&cfg.RabbitMQ)
	orderRepo := mysql.NewOrderRepository(db)

	ch, err := mqConn.Channel()
	if err != nil {
		zap.L().Fatal("open channel failed", zap.Error(err))
	}
	defer ch.Close()

	if _, err = ch.QueueDeclare(mq.OrderQueue, true, false, false, false, nil); err != nil {
		zap.L().Fatal("declare queue failed", zap.Error(err))
	}

	// 手动确认模式，处理失败的事件重新入队
	msgs, err := ch.Consume(mq.OrderQueue, "", false, false, false, false, nil)
	if err != nil {
		zap.L().Fatal("consume failed", zap.Error(err))
	}

	zap.L().Info("order worker started", zap.String("queue", mq.OrderQueue))

	for d := range msgs {
		var ev service.OrderEvent
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			zap.L().Warn("invalid event payload", zap.Error(err))
			// 格式错误的消息重试没有意义，直接丢弃
			_ = d.Nack(false, false)
			continue
		}
		handleEvent(context.Background(), orderRepo, &ev, d)
	}
}

func handleEvent(ctx context.Context, repo order.Repository, ev *service.OrderEvent, d amqp.Delivery) {
	switch ev.Type {
	case "order.paid":
		o, err := repo.GetByID(ctx, ev.OrderID)
		if err != nil {
			zap.L().Error("load order failed", zap.Int64("order_id", ev.OrderID), zap.Error(err))
			service.GetMonitor().RecordDBError()
			// 订单可能还在主库事务可见性窗口里，重新入队等下次投递
			_ = d.Nack(false, true)
			return
		}
		zap.L().Info("order confirmation queued",
			zap.Int64("order_id", o.ID),
			zap.String("order_number", o.OrderNumber),
			zap.String("email", o.Email),
			zap.Int("items", len(o.Items)),
			zap.String("total", o.TotalAmount.String()))
	case "order.refunded":
		zap.L().Info("refund notice queued",
			zap.Int64("order_id", ev.OrderID),
			zap.String("order_number", ev.OrderNumber),
			zap.String("email", ev.Email))
	case "order.cancelled":
		zap.L().Info("payment failure notice queued",
			zap.Int64("order_id", ev.OrderID),
			zap.String("order_number", ev.OrderNumber))
	default:
		zap.L().Warn("unknown event type", zap.String("type", ev.Type))
	}
	_ = d.Ack(false)
}
