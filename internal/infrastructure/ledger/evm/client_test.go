package evmledger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"github.com/tapfed/relayerd/internal/core/domain"
)

// newStubEndpoint serves canned JSON-RPC responses and stalls any method it
// has no answer for until the client gives up on the request.
func newStubEndpoint(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Id     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		result, ok := responses[req.Method]
		if !ok {
			<-r.Context().Done()
			return
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":%s}`, req.Id, result)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// stubHeadResult is a minimal pre-1559 chain head, so clients built against
// it select the legacy gas price path.
func stubHeadResult() string {
	zeroHash := "0x" + strings.Repeat("00", 32)
	return fmt.Sprintf(`{
		"parentHash":%q,"sha3Uncles":%q,"miner":"0x%s","stateRoot":%q,
		"transactionsRoot":%q,"receiptsRoot":%q,"logsBloom":"0x%s",
		"difficulty":"0x1","number":"0x1","gasLimit":"0x1c9c380","gasUsed":"0x0",
		"timestamp":"0x0","extraData":"0x","mixHash":%q,"nonce":"0x0000000000000000"}`,
		zeroHash, zeroHash, strings.Repeat("00", 20), zeroHash,
		zeroHash, zeroHash, strings.Repeat("00", 256), zeroHash,
	)
}

func TestDialUnreachableEndpoint(t *testing.T) {
	_, err := Dial(context.Background(), Config{
		Endpoint:    "http://127.0.0.1:1",
		ReadTimeout: 500 * time.Millisecond,
	})
	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrConnection)
}

func TestSubmitBuildPhaseIsBounded(t *testing.T) {
	srv := newStubEndpoint(t, map[string]string{
		"eth_chainId":          `"0x1"`,
		"eth_getBlockByNumber": stubHeadResult(),
	})

	key, err := crypto.HexToECDSA(
		"4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318",
	)
	require.NoError(t, err)

	registryABI, err := DefaultRegistryABI()
	require.NoError(t, err)
	cipherABI, err := DefaultCipherABI()
	require.NoError(t, err)

	client, err := Dial(context.Background(), Config{
		Endpoint:    srv.URL,
		RegistryABI: registryABI,
		CipherABI:   cipherABI,
		Key:         key,
		ReadTimeout: 200 * time.Millisecond,
	})
	require.NoError(t, err)
	defer client.Close()

	// The stub never answers eth_gasPrice: the build phase must be cut off
	// by the read timeout instead of hanging the caller forever.
	start := time.Now()
	_, err = client.PostCipher(context.Background(), 1, "bafy-c1", common.Hash{})
	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrSubmission)
	require.Less(t, time.Since(start), 5*time.Second)
}
