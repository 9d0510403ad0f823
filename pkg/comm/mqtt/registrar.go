package mqtt

import (
	"context"
	"encoding/json"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/robotalks/sbus.go/pkg/comm"
	fx "github.com/robotalks/sbus.go/pkg/framework"
	"github.com/robotalks/sbus.go/pkg/msgs"
)

// Registrar registers a node on the broker. It keeps the retained meta
// topic, publishes events and receives commands. The meta is cleared by
// the will message when the node disappears.
type Registrar struct {
	Queue *Queue
	Info  comm.NodeInfo

	metaJSON []byte
	rw       *ReadWriter
	peer     *comm.Peer
}

// NewRegistrar creates a Registrar. Commands go to handler.
func NewRegistrar(brokerURL string, info comm.NodeInfo, handler comm.CommandHandler) (*Registrar, error) {
	meta, err := json.Marshal(&info.Meta)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+metaTopic(info.Ref), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("sbus:" + info.Ref.ID)
	}
	r := &Registrar{
		Queue:    NewQueue(opts, topicPrefix),
		Info:     info,
		metaJSON: meta,
	}
	r.Queue.OnConnect = func(*Queue) { r.publishMeta(r.metaJSON) }
	r.rw = NewPacketReadWriter(r.Queue).ForNode(info.Ref)
	r.peer = comm.NewPeer(r.rw, handler)
	return r, nil
}

// SendEvent implements Registrar.
func (r *Registrar) SendEvent(ctx context.Context, msg msgs.Message) error {
	if !r.Queue.Client.IsConnected() {
		return nil
	}
	return r.peer.SendEvent(ctx, msg)
}

// Run implements Runnable.
func (r *Registrar) Run(ctx context.Context) error {
	token := r.Queue.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return err
	}
	glog.Infof("registered %s", r.Info.Ref.Name())
	err := fx.NewRunnerWith(ctx).Go(r.rw, r.peer).Wait()
	r.publishMeta(nil).Wait()
	r.Queue.Close()
	return err
}

func (r *Registrar) publishMeta(meta []byte) paho.Token {
	return r.Queue.PubWith(metaTopic(r.Info.Ref), meta, 1, true)
}

func metaTopic(ref comm.NodeRef) string {
	return ref.Name() + "/meta"
}
