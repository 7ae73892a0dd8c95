package ws

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/YiuTerran/go-director/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoSession struct {
	conn *Conn
}

func (s *echoSession) Run() {
	for {
		msg, err := s.conn.ReadMsg()
		if err != nil {
			return
		}
		_ = s.conn.WriteMsg(msg, []byte("!"))
	}
}

func (s *echoSession) OnClose() {}

func TestServerEcho(t *testing.T) {
	server := &Server{
		Addr: "127.0.0.1:0",
		NewSessionFunc: func(conn *Conn) network.Session {
			return &echoSession{conn: conn}
		},
	}
	require.NoError(t, server.Start())
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	d := &Dialer{}
	conn, err := d.DialContext(ctx, "ws://"+server.ListenAddr().String()+"/")
	require.NoError(t, err)
	defer conn.Destroy()

	for _, s := range []string{"a", "bc"} {
		require.NoError(t, conn.WriteMsg([]byte(s)))
		msg, err := conn.ReadMsg()
		require.NoError(t, err)
		assert.Equal(t, s+"!", string(msg))
	}
}

func writeSelfSignedCert(t *testing.T) (certFile, keyFile string, pool *x509.CertPool) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "director-test"},
		IPAddresses:  []net.IP{net.IPv4(127, 0, 0, 1)},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDer, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	dir := t.TempDir()
	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0600))
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDer}), 0600))

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	pool = x509.NewCertPool()
	pool.AddCert(cert)
	return certFile, keyFile, pool
}

func TestServerTLS(t *testing.T) {
	certFile, keyFile, pool := writeSelfSignedCert(t)
	server := &Server{
		Addr:     "127.0.0.1:0",
		CertFile: certFile,
		KeyFile:  keyFile,
		NewSessionFunc: func(conn *Conn) network.Session {
			return &echoSession{conn: conn}
		},
	}
	require.NoError(t, server.Start())
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	d := &Dialer{TLSClientConfig: &tls.Config{RootCAs: pool}}
	conn, err := d.DialContext(ctx, "wss://"+server.ListenAddr().String()+"/")
	require.NoError(t, err)
	defer conn.Destroy()
	require.NoError(t, conn.WriteMsg([]byte("secure")))
	msg, err := conn.ReadMsg()
	require.NoError(t, err)
	assert.Equal(t, "secure!", string(msg))

	// 明文握手会失败
	_, err = (&Dialer{}).DialContext(ctx, "ws://"+server.ListenAddr().String()+"/")
	assert.Error(t, err)
}

func TestServerTLSConfigErrors(t *testing.T) {
	certFile, _, _ := writeSelfSignedCert(t)
	server := &Server{
		Addr:           "127.0.0.1:0",
		CertFile:       certFile,
		NewSessionFunc: func(conn *Conn) network.Session { return &echoSession{conn: conn} },
	}
	assert.Error(t, server.Start())

	server.KeyFile = filepath.Join(t.TempDir(), "missing.pem")
	assert.Error(t, server.Start())
}

func TestServerHTTPTimeout(t *testing.T) {
	server := &Server{
		Addr:           "127.0.0.1:0",
		HTTPTimeout:    100 * time.Millisecond,
		NewSessionFunc: func(conn *Conn) network.Session { return &echoSession{conn: conn} },
	}
	require.NoError(t, server.Start())
	defer server.Close()

	// 不发请求头的连接会在HTTPTimeout之后被关闭
	conn, err := net.Dial("tcp", server.ListenAddr().String())
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	start := time.Now()
	_, err = io.ReadAll(conn)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
