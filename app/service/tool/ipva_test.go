package tool

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSefazStub(t *testing.T, lookup map[string]any) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/ipva/v1/emissaoDae/pesquisarVeiculo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ABC1234", r.URL.Query().Get("placa"))
		assert.Equal(t, "12345678901", r.URL.Query().Get("renavam"))

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(lookup))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server
}

func TestIpvaConsultWithOpenDebits(t *testing.T) {
	server := newSefazStub(t, map[string]any{
		"anoIpva":           2026,
		"descontoCotaUnica": 5.0,
		"veiculo": map[string]any{
			"id":            42,
			"placa":         "ABC1234",
			"renavam":       "12345678901",
			"marcaModelo":   "VW GOL 1.0",
			"anoFabricacao": 2020,
			"anoModelo":     2021,
			"municipio":     "FORTALEZA",
		},
		"debitosDoVeiculo": []map[string]any{
			{
				"id":                          1,
				"parcela":                     1,
				"exercicio":                   2026,
				"codigoSituacao":              99,
				"vencimento":                  "2026-02-10",
				"vlrPrincipal":                500.0,
				"totalPagarParcela":           512.33,
				"totalPagarCotaUnica":         486.71,
				"totalDesconto":               25.62,
				"percentualDescontoCotaUnica": 5.0,
			},
			{
				// paid installment must be filtered out
				"id":             2,
				"parcela":        2,
				"exercicio":      2026,
				"codigoSituacao": 1,
			},
			{
				// previous year must be filtered out
				"id":             3,
				"parcela":        1,
				"exercicio":      2025,
				"codigoSituacao": 99,
			},
		},
	})

	ipva := NewIpvaTool(server.URL)

	result, err := ipva.Execute(context.Background(), map[string]any{
		"placa":   "abc1234",
		"renavam": "12345678901",
		"action":  "consultar",
	})
	require.NoError(t, err)

	assert.Equal(t, true, result["success"])
	assert.Equal(t, 2026, result["ano_ipva"])
	assert.Equal(t, 1, result["quantidade_parcelas"])
	assert.InDelta(t, 512.33, result["total_parcelado"], 0.001)
	assert.InDelta(t, 486.71, result["total_cota_unica"], 0.001)

	debits, ok := result["debitos"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, debits, 1)
	assert.Equal(t, 1, debits[0]["parcela"])
	assert.Equal(t, true, debits[0]["tem_desconto"])
}

func TestIpvaConsultVehicleNotFound(t *testing.T) {
	server := newSefazStub(t, map[string]any{})

	ipva := NewIpvaTool(server.URL)

	result, err := ipva.Execute(context.Background(), map[string]any{
		"placa":   "ABC1234",
		"renavam": "12345678901",
		"action":  "consultar",
	})
	require.NoError(t, err)

	assert.Equal(t, false, result["success"])
	assert.Equal(t, "Veículo não encontrado", result["message"])
}

func TestIpvaConsultNoOpenDebits(t *testing.T) {
	server := newSefazStub(t, map[string]any{
		"anoIpva": 2026,
		"veiculo": map[string]any{
			"placa":       "ABC1234",
			"marcaModelo": "VW GOL 1.0",
		},
		"debitosDoVeiculo": []map[string]any{},
	})

	ipva := NewIpvaTool(server.URL)

	result, err := ipva.Execute(context.Background(), map[string]any{
		"placa":   "ABC1234",
		"renavam": "12345678901",
		"action":  "consultar",
	})
	require.NoError(t, err)

	assert.Equal(t, true, result["success"])
	assert.Equal(t, true, result["sem_debitos"])
}

func TestIpvaRequiresPlateAndRenavam(t *testing.T) {
	ipva := NewIpvaTool("http://localhost:1")

	_, err := ipva.Execute(context.Background(), map[string]any{
		"placa":  "ABC1234",
		"action": "consultar",
	})
	assert.Error(t, err)
}

func TestIpvaEmitWithoutInstallments(t *testing.T) {
	ipva := NewIpvaTool("http://localhost:1")

	result, err := ipva.Execute(context.Background(), map[string]any{
		"placa":   "ABC1234",
		"renavam": "12345678901",
		"action":  "emitir_boleto",
	})
	require.NoError(t, err)

	assert.Equal(t, false, result["success"])
	assert.NotEmpty(t, result["error"])
}

func TestIpvaUnknownAction(t *testing.T) {
	ipva := NewIpvaTool("http://localhost:1")

	result, err := ipva.Execute(context.Background(), map[string]any{
		"placa":   "ABC1234",
		"renavam": "12345678901",
		"action":  "cancelar",
	})
	require.NoError(t, err)

	assert.Equal(t, false, result["success"])
}
