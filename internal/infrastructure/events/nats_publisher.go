// Package events publica los movimientos confirmados del ledger para read-models externos (reportes).
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
)

var _ inventory.MovementPublisher = (*NATSPublisher)(nil)

// DefaultSubjectPrefix prefijo de subject; el sufijo es el product_id.
const DefaultSubjectPrefix = "inventory.movement.recorded"

// Connect abre la conexión NATS con reconexión indefinida.
func Connect(url string, log zerolog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("stock-ledger"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats desconectado")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("nats reconectado")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("conectar nats: %w", err)
	}
	return nc, nil
}

// NATSPublisher publica MovementRecordedEvent como JSON en <prefix>.<product_id>.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSPublisher construye el publicador.
func NewNATSPublisher(conn *nats.Conn, subjectPrefix string) *NATSPublisher {
	if subjectPrefix == "" {
		subjectPrefix = DefaultSubjectPrefix
	}
	return &NATSPublisher{conn: conn, prefix: subjectPrefix}
}

// Subject devuelve el subject de un producto.
func (p *NATSPublisher) Subject(productID string) string {
	return p.prefix + "." + productID
}

// PublishMovementRecorded serializa y publica el evento.
func (p *NATSPublisher) PublishMovementRecorded(ctx context.Context, ev inventory.MovementRecordedEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal evento: %w", err)
	}
	msg := nats.NewMsg(p.Subject(ev.ProductID))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, ev.MovementID)
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publicar %s: %w", msg.Subject, err)
	}
	return nil
}
