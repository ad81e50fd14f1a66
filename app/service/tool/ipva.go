package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultIpvaBaseURL points at the SEFAZ-CE public IPVA API.
const DefaultIpvaBaseURL = "https://ipva.sefaz.ce.gov.br/api"

const openDebitSituation = 99

// IpvaTool consults vehicle tax debts and emits payment slips (DAE) against
// the SEFAZ-CE API.
type IpvaTool struct {
	baseURL string
	client  *http.Client
	dataDir string
}

var _ Tool = (*IpvaTool)(nil)

func NewIpvaTool(baseURL string) *IpvaTool {
	if baseURL == "" {
		baseURL = DefaultIpvaBaseURL
	}

	return &IpvaTool{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		dataDir: "data",
	}
}

func (t *IpvaTool) Name() string {
	return "consultar_ipva"
}

func (t *IpvaTool) Description() string {
	return "EXCLUSIVO para IPVA do Ceará (SEFAZ-CE). Obtém automaticamente valores, vencimentos " +
		"e boletos. Requer APENAS 'placa' e 'renavam'. Use action 'consultar' para ver débitos e " +
		"'emitir_boleto' para gerar o pagamento de parcelas específicas."
}

func (t *IpvaTool) Parameters() Schema {
	return Schema{
		Type: "object",
		Properties: map[string]Property{
			"placa": {
				Type:        "string",
				Description: "Placa do veículo. Formato AAA1234.",
			},
			"renavam": {
				Type:        "string",
				Description: "Renavam de 11 dígitos. Não confunda com número de contrato.",
			},
			"action": {
				Type:        "string",
				Enum:        []string{"consultar", "emitir_boleto"},
				Description: "Use 'consultar' para ver o que deve. Use 'emitir_boleto' para gerar o pagamento.",
			},
			"parcelas": {
				Type:        "array",
				Items:       &Property{Type: "integer"},
				Description: "Números das parcelas a emitir (ex: [1]). Não invente valores.",
			},
		},
		Required: []string{"placa", "renavam", "action"},
	}
}

func (t *IpvaTool) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	placa := strings.ToUpper(stringParam(params, "placa"))
	renavam := stringParam(params, "renavam")

	if placa == "" || renavam == "" {
		return nil, fmt.Errorf("parâmetros 'placa' e 'renavam' são obrigatórios")
	}

	action := stringParam(params, "action")
	if action == "" {
		action = "consultar"
	}

	switch action {
	case "consultar":
		return t.consultVehicle(ctx, placa, renavam)
	case "emitir_boleto":
		installments := intSliceParam(params, "parcelas")
		if len(installments) == 0 {
			return map[string]any{
				"success": false,
				"error":   "Preciso saber qual(is) parcela(s) você quer emitir",
			}, nil
		}
		return t.emitSlip(ctx, placa, renavam, installments)
	default:
		return map[string]any{"success": false, "error": "Ação inválida"}, nil
	}
}

type vehicleLookupResponse struct {
	Veiculo                      *vehicleInfo `json:"veiculo"`
	DebitosDoVeiculo             []debitEntry `json:"debitosDoVeiculo"`
	AnoIpva                      int          `json:"anoIpva"`
	DescontoCotaUnica            float64      `json:"descontoCotaUnica"`
	DataLimitePagamentoCotaUnica string       `json:"dataLimitePagamentoCotaUnica"`
	DataLimitePagamentoParcelado string       `json:"dataLimitePagamentoParcelado"`
}

type vehicleInfo struct {
	ID                        int64  `json:"id"`
	Placa                     string `json:"placa"`
	Renavam                   string `json:"renavam"`
	MarcaModelo               string `json:"marcaModelo"`
	AnoFabricacao             int    `json:"anoFabricacao"`
	AnoModelo                 int    `json:"anoModelo"`
	DescricaoTipoVeiculo      string `json:"descricaoTipoVeiculo"`
	DescricaoCategoriaVeiculo string `json:"descricaoCategoriaVeiculo"`
	Municipio                 string `json:"municipio"`
}

type debitEntry struct {
	ID                          int64   `json:"id"`
	Parcela                     int     `json:"parcela"`
	Exercicio                   int     `json:"exercicio"`
	CodigoSituacao              int     `json:"codigoSituacao"`
	Vencimento                  string  `json:"vencimento"`
	VlrPrincipal                float64 `json:"vlrPrincipal"`
	TotalPagarParcela           float64 `json:"totalPagarParcela"`
	TotalPagarCotaUnica         float64 `json:"totalPagarCotaUnica"`
	TotalDesconto               float64 `json:"totalDesconto"`
	PercentualDescontoCotaUnica float64 `json:"percentualDescontoCotaUnica"`
}

func (t *IpvaTool) consultVehicle(ctx context.Context, placa, renavam string) (map[string]any, error) {
	query := url.Values{}
	query.Set("placa", placa)
	query.Set("renavam", renavam)

	endpoint := fmt.Sprintf("%s/ipva/v1/emissaoDae/pesquisarVeiculo?%s", t.baseURL, query.Encode())

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	response, err := t.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("sefaz request failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sefaz returned status %d", response.StatusCode)
	}

	var lookup vehicleLookupResponse
	if err = json.NewDecoder(response.Body).Decode(&lookup); err != nil {
		return nil, fmt.Errorf("failed to decode sefaz response: %w", err)
	}

	if lookup.Veiculo == nil {
		return map[string]any{
			"success": false,
			"message": "Veículo não encontrado",
		}, nil
	}

	openDebits := filterOpenDebits(lookup.DebitosDoVeiculo, lookup.AnoIpva)

	vehicle := map[string]any{
		"placa":        lookup.Veiculo.Placa,
		"renavam":      lookup.Veiculo.Renavam,
		"marca_modelo": lookup.Veiculo.MarcaModelo,
		"ano":          fmt.Sprintf("%d/%d", lookup.Veiculo.AnoFabricacao, lookup.Veiculo.AnoModelo),
		"tipo":         lookup.Veiculo.DescricaoTipoVeiculo,
		"categoria":    lookup.Veiculo.DescricaoCategoriaVeiculo,
		"municipio":    lookup.Veiculo.Municipio,
	}

	if len(openDebits) == 0 {
		return map[string]any{
			"success":     true,
			"sem_debitos": true,
			"veiculo":     vehicle,
			"message":     fmt.Sprintf("Veículo encontrado mas sem débitos em aberto para %d", lookup.AnoIpva),
		}, nil
	}

	var totalInstallments, totalSingleQuota float64
	for _, debit := range openDebits {
		totalInstallments += debit["valor_pagar"].(float64)
		totalSingleQuota += debit["valor_cota_unica"].(float64)
	}

	var totalDiscount float64
	if totalSingleQuota < totalInstallments {
		totalDiscount = totalInstallments - totalSingleQuota
	}

	return map[string]any{
		"success":             true,
		"veiculo_id":          lookup.Veiculo.ID,
		"veiculo":             vehicle,
		"ano_ipva":            lookup.AnoIpva,
		"debitos":             openDebits,
		"total_parcelado":     totalInstallments,
		"total_cota_unica":    totalSingleQuota,
		"desconto_cota_unica": totalDiscount,
		"percentual_desconto": lookup.DescontoCotaUnica,
		"quantidade_parcelas": len(openDebits),
		"prazo_cota_unica":    lookup.DataLimitePagamentoCotaUnica,
		"prazo_parcelado":     lookup.DataLimitePagamentoParcelado,
	}, nil
}

func filterOpenDebits(debits []debitEntry, taxYear int) []map[string]any {
	var open []map[string]any

	for _, debit := range debits {
		if debit.Exercicio != taxYear || debit.CodigoSituacao != openDebitSituation {
			continue
		}

		open = append(open, map[string]any{
			"id":                  debit.ID,
			"parcela":             debit.Parcela,
			"vencimento":          debit.Vencimento,
			"valor_original":      debit.VlrPrincipal,
			"valor_pagar":         debit.TotalPagarParcela,
			"valor_cota_unica":    debit.TotalPagarCotaUnica,
			"desconto_cota_unica": debit.TotalDesconto,
			"tem_desconto":        debit.PercentualDescontoCotaUnica > 0,
		})
	}

	return open
}

func (t *IpvaTool) emitSlip(ctx context.Context, placa, renavam string, installments []int) (map[string]any, error) {
	payload, err := json.Marshal(map[string]any{
		"placa":    placa,
		"renavam":  renavam,
		"parcelas": installments,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal emission payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/ipva/v1/emissaoDae", t.baseURL)

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(payload)))
	if err != nil {
		return nil, fmt.Errorf("failed to create emission request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := t.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("sefaz emission failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sefaz emission returned status %d", response.StatusCode)
	}

	var emission struct {
		CodigoIdentificador string `json:"codigoIdentificador"`
	}
	if err = json.NewDecoder(response.Body).Decode(&emission); err != nil {
		return nil, fmt.Errorf("failed to decode emission response: %w", err)
	}

	pdfPath, err := t.downloadSlip(ctx, emission.CodigoIdentificador, placa)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"success":     true,
		"pdf_path":    pdfPath,
		"pdf_caption": fmt.Sprintf("DAE IPVA %s", placa),
		"parcelas":    installments,
	}, nil
}

func (t *IpvaTool) downloadSlip(ctx context.Context, code, placa string) (string, error) {
	query := url.Values{}
	query.Set("qrCode", "true")
	query.Set("codigoIdentificador", code)

	endpoint := fmt.Sprintf("%s/receita/v1/receitas/impressaoDaes/ipva/?%s", t.baseURL, query.Encode())

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create slip request: %w", err)
	}

	response, err := t.client.Do(request)
	if err != nil {
		return "", fmt.Errorf("slip download failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("slip download returned status %d", response.StatusCode)
	}

	if err = os.MkdirAll(t.dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data dir: %w", err)
	}

	pdfPath := filepath.Join(t.dataDir, fmt.Sprintf("dae_%s_%d.pdf", placa, time.Now().Unix()))

	file, err := os.Create(pdfPath)
	if err != nil {
		return "", fmt.Errorf("failed to create pdf file: %w", err)
	}
	defer file.Close()

	if _, err = file.ReadFrom(response.Body); err != nil {
		return "", fmt.Errorf("failed to write pdf file: %w", err)
	}

	return pdfPath, nil
}
