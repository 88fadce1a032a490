package mqtt

import (
	"container/list"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
)

// Handler is the callback when a message is received.
type Handler func(topic string, payload []byte)

// ConnectHandler is to handle connect/disconnect events.
type ConnectHandler func(*Queue)

// Queue wraps an MQTT client which can be connected and disconnected
// repeatedly. Subscriptions survive reconnections.
type Queue struct {
	TopicPrefix  string
	OnConnect    ConnectHandler
	OnDisconnect ConnectHandler

	options      *paho.ClientOptions
	newClient    func(*paho.ClientOptions) paho.Client
	clientLock   sync.RWMutex
	client       paho.Client
	connectToken paho.Token
	connected    bool

	subsLock     sync.RWMutex
	subs         map[string]*list.List
	wildcardSubs map[string]*list.List
}

// Subscription is a subscribed topic.
type Subscription struct {
	queue    *Queue
	elm      *list.Element
	topic    string
	wildcard bool
	handler  Handler
}

// ErrNoClient is reported by tokens when the queue was never connected.
var ErrNoClient = errors.New("mqtt client not connected")

// MatchTopic matches topic with pattern.
func MatchTopic(topic, pattern string) bool {
	tokensT, tokensP := strings.Split(topic, "/"), strings.Split(pattern, "/")
	for i, token := range tokensP {
		if token == "#" && i+1 == len(tokensP) {
			return true
		}
		if i >= len(tokensT) {
			return false
		}
		if token != "+" && token != tokensT[i] {
			return false
		}
	}
	return len(tokensP) == len(tokensT)
}

// ClientOptionsFromURL creates ClientOptions from URL.
// The path of the URL is used as topic prefix.
func ClientOptionsFromURL(serverURL string) (*paho.ClientOptions, string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, "", err
	}
	var server string
	switch u.Scheme {
	case "", "mqtt":
		server = "tcp"
	case "mqtts":
		server = "ssl"
	default:
		server = u.Scheme
	}
	server += "://" + u.Host

	topicPrefix := strings.TrimPrefix(u.Path, "/")
	if topicPrefix != "" && !strings.HasSuffix(topicPrefix, "/") {
		topicPrefix += "/"
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(server).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}

	if clientID := u.Query().Get("client-id"); clientID != "" {
		opts.SetClientID(clientID)
	}

	return opts, topicPrefix, nil
}

// NewQueue creates Queue. The client is created on Connect.
func NewQueue(options *paho.ClientOptions, topicPrefix string) *Queue {
	q := &Queue{TopicPrefix: topicPrefix, options: options, newClient: paho.NewClient}
	options.SetOnConnectHandler(q.onConnect)
	options.SetConnectionLostHandler(q.connectionLost)
	return q
}

// NewQueueFromURL creates Queue from URL.
func NewQueueFromURL(brokerURL string) (*Queue, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return NewQueue(opts, topicPrefix), nil
}

// SetKeepAlive changes the keep-alive of subsequent connections.
func (q *Queue) SetKeepAlive(d time.Duration) {
	q.clientLock.Lock()
	q.options.SetKeepAlive(d)
	q.clientLock.Unlock()
}

// SetWill sets the last will of subsequent connections.
func (q *Queue) SetWill(topic string, payload []byte) {
	q.clientLock.Lock()
	q.options.SetBinaryWill(q.TopicPrefix+topic, payload, 1, true)
	q.clientLock.Unlock()
}

// ConnectWaitTimeout bounds how long Disconnect waits for a connect
// attempt in flight before tearing the client down.
var ConnectWaitTimeout = 30 * time.Second

// Connect connects with a fresh client using current options.
// It's a no-op if already connected or a connect attempt is in flight.
func (q *Queue) Connect() paho.Token {
	q.clientLock.Lock()
	defer q.clientLock.Unlock()
	if q.connected {
		return &paho.DummyToken{}
	}
	if q.connectToken != nil && !tokenDone(q.connectToken) {
		return q.connectToken
	}
	if q.client != nil {
		q.client.Disconnect(0)
	}
	q.client = q.newClient(q.options)
	q.connectToken = q.client.Connect()
	return q.connectToken
}

// Disconnect closes the connection. A client still connecting is
// disconnected in background once its attempt completes.
func (q *Queue) Disconnect(quiesce uint) {
	q.clientLock.Lock()
	client, token := q.client, q.connectToken
	q.client, q.connectToken, q.connected = nil, nil, false
	q.clientLock.Unlock()
	if client == nil {
		return
	}
	if token == nil || tokenDone(token) {
		client.Disconnect(quiesce)
		return
	}
	go func() {
		if !token.WaitTimeout(ConnectWaitTimeout) {
			glog.Warningf("connect still in flight after %v, disconnecting anyway", ConnectWaitTimeout)
		}
		client.Disconnect(quiesce)
	}()
}

func tokenDone(token paho.Token) bool {
	return token.WaitTimeout(time.Millisecond)
}

// Connected indicates the queue is connected.
func (q *Queue) Connected() bool {
	q.clientLock.RLock()
	defer q.clientLock.RUnlock()
	return q.connected
}

// Close implements io.Closer.
func (q *Queue) Close() error {
	q.Disconnect(0)
	return nil
}

func (q *Queue) currentClient() paho.Client {
	q.clientLock.RLock()
	defer q.clientLock.RUnlock()
	return q.client
}

// Sub subscribes a topic. The subscription is sent to the broker
// immediately if connected, otherwise on connect.
func (q *Queue) Sub(topic string, handler Handler) *Subscription {
	wildcard := strings.Contains(topic, "+") || strings.HasSuffix(topic, "#")
	var newSub bool
	q.subsLock.Lock()
	if q.subs == nil {
		q.subs = make(map[string]*list.List)
	}
	if q.wildcardSubs == nil {
		q.wildcardSubs = make(map[string]*list.List)
	}
	subs := q.subs
	if wildcard {
		subs = q.wildcardSubs
	}
	lst := subs[topic]
	if lst == nil {
		lst = list.New()
		subs[topic] = lst
		newSub = true
	}
	sub := &Subscription{
		queue:    q,
		topic:    topic,
		wildcard: wildcard,
		handler:  handler,
	}
	sub.elm = lst.PushBack(sub)
	q.subsLock.Unlock()

	if newSub && q.Connected() {
		if client := q.currentClient(); client != nil {
			glog.V(2).Infof("SUB %q", q.TopicPrefix+topic)
			client.Subscribe(q.TopicPrefix+topic, 0, q.dispatch)
		}
	}
	return sub
}

// Pub publishes to a topic.
func (q *Queue) Pub(topic string, payload []byte) paho.Token {
	return q.PubWith(topic, payload, 0, false)
}

// PubWith publishes with QoS and retain settings.
func (q *Queue) PubWith(topic string, payload []byte, qos byte, retain bool) paho.Token {
	client := q.currentClient()
	if client == nil {
		return &errToken{err: ErrNoClient}
	}
	glog.V(2).Infof("PUB %q (%d bytes)", q.TopicPrefix+topic, len(payload))
	return client.Publish(q.TopicPrefix+topic, qos, retain, payload)
}

// Resubscribe subscribes all existing topics.
func (q *Queue) Resubscribe(client paho.Client) paho.Token {
	filters := make(map[string]byte)
	q.subsLock.RLock()
	for topic := range q.subs {
		filters[q.TopicPrefix+topic] = 0
	}
	for topic := range q.wildcardSubs {
		filters[q.TopicPrefix+topic] = 0
	}
	q.subsLock.RUnlock()
	if len(filters) > 0 {
		if glog.V(2) {
			for key := range filters {
				glog.Infof("SUB %q", key)
			}
		}
		return client.SubscribeMultiple(filters, q.dispatch)
	}
	return &paho.DummyToken{}
}

func (q *Queue) onConnect(c paho.Client) {
	q.clientLock.Lock()
	current := q.client == c
	if current {
		q.connected = true
	}
	q.clientLock.Unlock()
	if !current {
		return
	}
	glog.Info("connected")
	q.Resubscribe(c)
	if h := q.OnConnect; h != nil {
		h(q)
	}
}

func (q *Queue) connectionLost(c paho.Client, err error) {
	q.clientLock.Lock()
	current := q.client == c
	if current {
		q.connected = false
	}
	q.clientLock.Unlock()
	if !current {
		return
	}
	glog.Warningf("connection lost: %v", err)
	if h := q.OnDisconnect; h != nil {
		h(q)
	}
}

func (q *Queue) dispatch(c paho.Client, msg paho.Message) {
	topic := msg.Topic()
	if !strings.HasPrefix(topic, q.TopicPrefix) {
		return
	}
	glog.V(2).Infof("RCV %q", topic)
	topic = topic[len(q.TopicPrefix):]
	var handlers []Handler
	q.subsLock.RLock()
	if lst := q.subs[topic]; lst != nil {
		handlers = make([]Handler, 0, lst.Len())
		for elm := lst.Front(); elm != nil; elm = elm.Next() {
			handlers = append(handlers, elm.Value.(*Subscription).handler)
		}
	}
	for key, lst := range q.wildcardSubs {
		if MatchTopic(topic, key) {
			for elm := lst.Front(); elm != nil; elm = elm.Next() {
				handlers = append(handlers, elm.Value.(*Subscription).handler)
			}
		}
	}
	q.subsLock.RUnlock()
	payload := msg.Payload()
	for _, h := range handlers {
		h(topic, payload)
	}
}

// Close unsubscribes a handler.
func (s *Subscription) Close() error {
	var unsub bool
	s.queue.subsLock.Lock()
	subs := s.queue.subs
	if s.wildcard {
		subs = s.queue.wildcardSubs
	}
	if lst := subs[s.topic]; lst != nil {
		lst.Remove(s.elm)
		if unsub = lst.Len() == 0; unsub {
			delete(subs, s.topic)
		}
	}
	s.queue.subsLock.Unlock()
	if !unsub || !s.queue.Connected() {
		return nil
	}
	client := s.queue.currentClient()
	if client == nil {
		return nil
	}
	glog.V(2).Infof("UNSUB %q", s.topic)
	token := client.Unsubscribe(s.queue.TopicPrefix + s.topic)
	token.Wait()
	return token.Error()
}

type errToken struct {
	err error
}

func (t *errToken) Wait() bool                     { return true }
func (t *errToken) WaitTimeout(time.Duration) bool { return true }
func (t *errToken) Error() error                   { return t.err }
