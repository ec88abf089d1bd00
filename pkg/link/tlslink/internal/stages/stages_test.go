// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package stages

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/devbridge/devbridge-go/pkg/certs"
	"github.com/devbridge/devbridge-go/pkg/identity"
	"github.com/devbridge/devbridge-go/pkg/link"
	"github.com/devbridge/devbridge-go/pkg/protocol"
)

var testCerts = map[string]*certs.Certificate{}

func testCertificate(t *testing.T, deviceId string) *certs.Certificate {
	if c, ok := testCerts[deviceId]; ok {
		return c
	}

	c, err := certs.Generate(deviceId)
	if err != nil {
		t.Fatal(err)
	}
	testCerts[deviceId] = c
	return c
}

func testIdentity(deviceId string) identity.Identity {
	return identity.Identity{
		DeviceID:             deviceId,
		DeviceName:           deviceId,
		ProtocolVersion:      protocol.Version,
		IncomingCapabilities: []string{protocol.TypePing},
		OutgoingCapabilities: []string{protocol.TypePing},
		TcpPort:              1716,
	}
}

func handshakeStages() []StageSetup {
	return []StageSetup{
		{Stage: &PlaintextIdentityStage{}},
		{Stage: &TlsUpgradeStage{}},
		{Stage: &EncryptedIdentityStage{}},
	}
}

// runHandshake executes both ends of a handshake over a net.Pipe and
// returns the two final States.
func runHandshake(t *testing.T, dialerConf, acceptorConf Configuration) (dialerState, acceptorState *State, dialerErr, acceptorErr error) {
	dialerConn, acceptorConn := net.Pipe()

	dialer := NewStageHandler(handshakeStages(), dialerConn, dialerConf)
	acceptor := NewStageHandler(handshakeStages(), acceptorConn, acceptorConf)

	errCh := make(chan error, 2)
	collect := func(sh *StageHandler) {
		if err, ok := <-sh.Error(); ok {
			errCh <- err
		} else {
			errCh <- nil
		}
	}

	go collect(dialer)
	go collect(acceptor)

	timeout := time.After(10 * time.Second)
	for i := 0; i < 2; i++ {
		select {
		case <-errCh:
		case <-timeout:
			t.Fatal("handshake did not finish")
		}
	}

	// Re-inspect in order: collect closed over errCh without ordering, so
	// derive the results from the states instead.
	return dialer.State(), acceptor.State(), dialer.State().StageError, acceptor.State().StageError
}

func TestHandshake(t *testing.T) {
	alice := testIdentity("alice-laptop")
	bob := testIdentity("bob-phone")

	// alice-laptop < bob-phone, so alice dials and plays TLS server.
	dialerState, acceptorState, dialerErr, acceptorErr := runHandshake(t,
		Configuration{
			LocalIdentity:  alice,
			Certificate:    testCertificate(t, alice.DeviceID),
			Dialed:         true,
			ExpectedPeerId: bob.DeviceID,
		},
		Configuration{
			LocalIdentity: bob,
			Certificate:   testCertificate(t, bob.DeviceID),
		})

	if dialerErr != nil {
		t.Fatalf("dialer handshake failed: %v", dialerErr)
	}
	if acceptorErr != nil {
		t.Fatalf("acceptor handshake failed: %v", acceptorErr)
	}

	if dialerState.Role != link.RoleServer {
		t.Fatalf("dialer has role %v", dialerState.Role)
	}
	if acceptorState.Role != link.RoleClient {
		t.Fatalf("acceptor has role %v", acceptorState.Role)
	}

	if dialerState.PeerIdentity.DeviceID != bob.DeviceID {
		t.Fatalf("dialer learned peer %v", dialerState.PeerIdentity)
	}
	if acceptorState.PeerIdentity.DeviceID != alice.DeviceID {
		t.Fatalf("acceptor learned peer %v", acceptorState.PeerIdentity)
	}

	if dialerState.PeerFingerprint != testCertificate(t, bob.DeviceID).Fingerprint() {
		t.Fatal("dialer recorded a wrong peer fingerprint")
	}
	if acceptorState.PeerFingerprint != testCertificate(t, alice.DeviceID).Fingerprint() {
		t.Fatal("acceptor recorded a wrong peer fingerprint")
	}
}

func TestHandshakeIdentityMismatch(t *testing.T) {
	alice := testIdentity("alice-laptop")
	mallory := testIdentity("mallory-pc")

	// alice dials expecting "bob-phone", but the peer's encrypted identity
	// claims to be mallory-pc. The handshake must fail, never establish.
	dialerState, _, dialerErr, _ := runHandshake(t,
		Configuration{
			LocalIdentity:  alice,
			Certificate:    testCertificate(t, alice.DeviceID),
			Dialed:         true,
			ExpectedPeerId: "bob-phone",
		},
		Configuration{
			LocalIdentity: mallory,
			Certificate:   testCertificate(t, mallory.DeviceID),
		})

	if dialerErr == nil {
		t.Fatal("handshake with substituted identity did not fail")
	}

	var stageErr *Error
	if !errors.As(dialerErr, &stageErr) || stageErr.Kind != link.ErrorProtocol {
		t.Fatalf("expected a protocol Error, got %v", dialerErr)
	}

	if dialerState.PeerIdentity.DeviceID != "" {
		t.Fatal("failed handshake still populated the peer identity")
	}
}

func TestHandshakeMalformedPlaintextIdentity(t *testing.T) {
	dialerConn, acceptorConn := net.Pipe()

	acceptor := NewStageHandler(handshakeStages(), acceptorConn, Configuration{
		LocalIdentity: testIdentity("bob-phone"),
		Certificate:   testCertificate(t, "bob-phone"),
	})

	go func() {
		_, _ = dialerConn.Write([]byte("this is no identity packet\n"))
	}()

	select {
	case err, ok := <-acceptor.Error():
		if !ok || err == nil {
			t.Fatal("malformed plaintext identity did not fail the handshake")
		}

		var stageErr *Error
		if !errors.As(err, &stageErr) || stageErr.Kind != link.ErrorProtocol {
			t.Fatalf("expected a protocol Error, got %v", err)
		}

	case <-time.After(5 * time.Second):
		t.Fatal("handshake did not finish")
	}

	_ = dialerConn.Close()
}

func TestHandshakeSelfConnection(t *testing.T) {
	dialerConn, _ := net.Pipe()

	dialer := NewStageHandler(handshakeStages(), dialerConn, Configuration{
		LocalIdentity:  testIdentity("alice-laptop"),
		Certificate:    testCertificate(t, "alice-laptop"),
		Dialed:         true,
		ExpectedPeerId: "alice-laptop",
	})

	select {
	case err, ok := <-dialer.Error():
		if !ok || err == nil {
			t.Fatal("self connection was not refused")
		}

	case <-time.After(5 * time.Second):
		t.Fatal("handshake did not finish")
	}
}

func TestHandshakeMissingExpectedPeer(t *testing.T) {
	dialerConn, _ := net.Pipe()

	dialer := NewStageHandler(handshakeStages(), dialerConn, Configuration{
		LocalIdentity: testIdentity("alice-laptop"),
		Certificate:   testCertificate(t, "alice-laptop"),
		Dialed:        true,
	})

	select {
	case err, ok := <-dialer.Error():
		if !ok || err == nil {
			t.Fatal("dial without an expected peer id was not refused")
		}

	case <-time.After(5 * time.Second):
		t.Fatal("handshake did not finish")
	}
}
