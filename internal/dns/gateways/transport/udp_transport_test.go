package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/haukened/fw-dns/internal/dns/domain"
	"github.com/haukened/fw-dns/internal/dns/gateways/wire"
)

// MockMessageCodec implements wire.MessageCodec for testing
type MockMessageCodec struct {
	mock.Mock
}

func (m *MockMessageCodec) DecodeMessage(data []byte) (domain.Message, error) {
	args := m.Called(data)
	return args.Get(0).(domain.Message), args.Error(1)
}

func (m *MockMessageCodec) EncodeMessage(msg domain.Message) ([]byte, error) {
	args := m.Called(msg)
	return args.Get(0).([]byte), args.Error(1)
}

// MockDNSResponder implements forwarder.DNSResponder for testing
type MockDNSResponder struct {
	mock.Mock
}

func (m *MockDNSResponder) HandleQuery(ctx context.Context, req domain.Message, clientAddr net.Addr) (domain.Message, error) {
	args := m.Called(ctx, req, clientAddr)
	return args.Get(0).(domain.Message), args.Error(1)
}

// MockLogger implements log.Logger for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(fields map[string]any, msg string) { m.Called(fields, msg) }
func (m *MockLogger) Info(fields map[string]any, msg string)  { m.Called(fields, msg) }
func (m *MockLogger) Warn(fields map[string]any, msg string)  { m.Called(fields, msg) }
func (m *MockLogger) Error(fields map[string]any, msg string) { m.Called(fields, msg) }
func (m *MockLogger) Fatal(fields map[string]any, msg string) { m.Called(fields, msg) }

// testLogger provides a no-op logger for tests that don't verify logging
type testLogger struct{}

func (t *testLogger) Debug(map[string]any, string) {}
func (t *testLogger) Info(map[string]any, string)  {}
func (t *testLogger) Warn(map[string]any, string)  {}
func (t *testLogger) Error(map[string]any, string) {}
func (t *testLogger) Fatal(map[string]any, string) {}

func TestNewUDPTransport(t *testing.T) {
	codec := &MockMessageCodec{}
	logger := &testLogger{}
	addr := "127.0.0.1:5053"

	transport := NewUDPTransport(addr, codec, logger)

	assert.NotNil(t, transport)
	assert.Equal(t, addr, transport.addr)
	assert.Equal(t, codec, transport.codec)
	assert.Equal(t, logger, transport.logger)
	assert.NotNil(t, transport.stopCh)
	assert.False(t, transport.running)
}

func TestUDPTransport_AddressBeforeStart(t *testing.T) {
	transport := NewUDPTransport("127.0.0.1:5053", &MockMessageCodec{}, &testLogger{})
	assert.Equal(t, "127.0.0.1:5053", transport.Address())
}

func TestUDPTransport_StartStop(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid address",
			addr:    "127.0.0.1:0", // let the OS choose a port
			wantErr: false,
		},
		{
			name:    "invalid address format",
			addr:    "invalid-address",
			wantErr: true,
			errMsg:  "failed to resolve UDP address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codec := &MockMessageCodec{}
			handler := &MockDNSResponder{}

			transport := NewUDPTransport(tt.addr, codec, &testLogger{})
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			err := transport.Start(ctx, handler)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}

			require.NoError(t, err)
			assert.True(t, transport.running)
			assert.NotNil(t, transport.conn)

			// Address now reflects the actual bound port
			_, port, splitErr := net.SplitHostPort(transport.Address())
			require.NoError(t, splitErr)
			assert.NotEqual(t, "0", port)

			// Double start fails
			err = transport.Start(ctx, handler)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "already running")

			err = transport.Stop()
			assert.NoError(t, err)
			assert.False(t, transport.running)

			// Double stop is safe
			err = transport.Stop()
			assert.NoError(t, err)
		})
	}
}

func TestUDPTransport_QueryHandling(t *testing.T) {
	codec := &MockMessageCodec{}
	handler := &MockDNSResponder{}

	testQuery := domain.Message{
		Header: domain.Header{ID: 12345, Flags: domain.Flags{RD: true}, QDCount: 1},
		Questions: []domain.Question{
			{Name: "example.com", Type: domain.RRTypeA, Class: domain.RRClassIN},
		},
	}
	testResponse := domain.NewResponse(testQuery)
	testResponse.Answers = []domain.ResourceRecord{
		{Name: "example.com", Type: domain.RRTypeA, Class: domain.RRClassIN, TTL: 60, Data: []byte{1, 2, 3, 4}},
	}
	testResponse.SyncCounts()

	queryData := []byte{0x01, 0x02, 0x03}
	responseData := []byte{0x04, 0x05, 0x06}

	codec.On("DecodeMessage", queryData).Return(testQuery, nil)
	codec.On("EncodeMessage", testResponse).Return(responseData, nil)
	handler.On("HandleQuery", mock.Anything, testQuery, mock.AnythingOfType("*net.UDPAddr")).Return(testResponse, nil)

	transport := NewUDPTransport("127.0.0.1:0", codec, &testLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := transport.Start(ctx, handler)
	require.NoError(t, err)
	defer func() { require.NoError(t, transport.Stop()) }()

	actualAddr := transport.conn.LocalAddr().(*net.UDPAddr)
	clientConn, err := net.DialUDP("udp", nil, actualAddr)
	require.NoError(t, err)
	defer func() { require.NoError(t, clientConn.Close()) }()

	_, err = clientConn.Write(queryData)
	require.NoError(t, err)

	responseBuffer := make([]byte, 512)
	err = clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, err)
	n, err := clientConn.Read(responseBuffer)
	require.NoError(t, err)

	assert.Equal(t, responseData, responseBuffer[:n])

	codec.AssertExpectations(t)
	handler.AssertExpectations(t)
}

func TestUDPTransport_MalformedQueryIsDropped(t *testing.T) {
	codec := &MockMessageCodec{}
	mockLogger := &MockLogger{}
	handler := &MockDNSResponder{}

	invalidData := []byte{0xFF, 0xFF, 0xFF}
	codec.On("DecodeMessage", invalidData).Return(domain.Message{}, wire.ErrTruncatedMessage)

	warned := make(chan struct{}, 1)
	mockLogger.On("Warn", mock.MatchedBy(func(fields map[string]any) bool {
		return fields["error"] != nil
	}), "Failed to decode DNS query").Run(func(mock.Arguments) {
		select {
		case warned <- struct{}{}:
		default:
		}
	})
	mockLogger.On("Info", mock.Anything, mock.Anything).Maybe()
	mockLogger.On("Debug", mock.Anything, mock.Anything).Maybe()

	transport := NewUDPTransport("127.0.0.1:0", codec, mockLogger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := transport.Start(ctx, handler)
	require.NoError(t, err)
	defer func() { require.NoError(t, transport.Stop()) }()

	actualAddr := transport.conn.LocalAddr().(*net.UDPAddr)
	clientConn, err := net.DialUDP("udp", nil, actualAddr)
	require.NoError(t, err)
	defer func() { require.NoError(t, clientConn.Close()) }()

	_, err = clientConn.Write(invalidData)
	require.NoError(t, err)

	select {
	case <-warned:
	case <-time.After(2 * time.Second):
		t.Fatal("decode failure was not logged")
	}

	// No response is sent for malformed datagrams
	responseBuffer := make([]byte, 512)
	require.NoError(t, clientConn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, err = clientConn.Read(responseBuffer)
	assert.Error(t, err)

	handler.AssertNotCalled(t, "HandleQuery", mock.Anything, mock.Anything, mock.Anything)
}

func TestUDPTransport_HandlerErrorDropsQuery(t *testing.T) {
	codec := &MockMessageCodec{}
	handler := &MockDNSResponder{}

	testQuery := domain.Message{
		Header: domain.Header{ID: 7, QDCount: 1},
		Questions: []domain.Question{
			{Name: "example.com", Type: domain.RRTypeA, Class: domain.RRClassIN},
		},
	}
	queryData := []byte{0x0A, 0x0B}

	codec.On("DecodeMessage", queryData).Return(testQuery, nil)
	handler.On("HandleQuery", mock.Anything, testQuery, mock.AnythingOfType("*net.UDPAddr")).Return(domain.Message{}, assert.AnError)

	transport := NewUDPTransport("127.0.0.1:0", codec, &testLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := transport.Start(ctx, handler)
	require.NoError(t, err)
	defer func() { require.NoError(t, transport.Stop()) }()

	actualAddr := transport.conn.LocalAddr().(*net.UDPAddr)
	clientConn, err := net.DialUDP("udp", nil, actualAddr)
	require.NoError(t, err)
	defer func() { require.NoError(t, clientConn.Close()) }()

	_, err = clientConn.Write(queryData)
	require.NoError(t, err)

	responseBuffer := make([]byte, 512)
	require.NoError(t, clientConn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, err = clientConn.Read(responseBuffer)
	assert.Error(t, err)

	codec.AssertExpectations(t)
}
