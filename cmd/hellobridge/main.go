package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/hellobridge/internal/hydra"
)

type client struct {
	BaseURL   string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
}

func (c *client) get(path string) (int, []byte, error) {
	url := strings.TrimRight(c.BaseURL, "/") + path
	resp, err := c.HTTP.Get(url)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) print(status int, body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Println(string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Println(string(body))
	} else {
		fmt.Printf("status=%d\n", status)
	}
}

func main() {
	var (
		baseURL  = envOr("HELLOBRIDGE_URL", "http://localhost:8080")
		adminURL = envOr("HYDRA_ADMIN_URL", "http://localhost:4445")
		out      = envOr("HELLOBRIDGE_OUT", "text")
		timeout  = 30 * time.Second
	)

	root := &cobra.Command{
		Use:   "hellobridge",
		Short: "CLI de operaciones para el login bridge",
	}
	root.PersistentFlags().StringVar(&baseURL, "url", baseURL, "URL base del bridge (env HELLOBRIDGE_URL)")
	root.PersistentFlags().StringVar(&adminURL, "hydra-admin-url", adminURL, "URL del admin API del Authorization Server (env HYDRA_ADMIN_URL)")
	root.PersistentFlags().StringVar(&out, "out", out, "Formato de salida: json|text")

	cl := &client{BaseURL: baseURL, OutFormat: out, HTTP: &http.Client{Timeout: timeout}}

	pingCmd := &cobra.Command{
		Use:   "ping",
		Short: "Verifica que el bridge esté vivo",
		RunE: func(cmd *cobra.Command, args []string) error {
			cl.BaseURL = baseURL
			status, body, err := cl.get("/healthz")
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("ping fallo: status=%d body=%s", status, string(body))
			}
			if cl.OutFormat == "text" {
				fmt.Println("ok")
				return nil
			}
			cl.print(status, body)
			return nil
		},
	}

	readyCmd := &cobra.Command{
		Use:   "ready",
		Short: "Verifica el bridge y sus dependencias (storage)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cl.BaseURL = baseURL
			status, body, err := cl.get("/readyz")
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("ready fallo: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}

	// grupo challenge: habla directo con el admin API, útil para depurar
	// flujos trabados sin pasar por el bridge.
	challengeCmd := &cobra.Command{
		Use:   "challenge",
		Short: "Inspección de login challenges contra el admin API",
	}

	var getChallenge string
	challengeGetCmd := &cobra.Command{
		Use:   "get",
		Short: "Muestra el estado de un login challenge pendiente",
		RunE: func(cmd *cobra.Command, args []string) error {
			if getChallenge == "" {
				return fmt.Errorf("--challenge es requerido")
			}
			admin := hydra.New(adminURL)
			lr, err := admin.GetLoginRequest(context.Background(), getChallenge)
			if err != nil {
				var ue *hydra.UpstreamError
				if errors.As(err, &ue) && ue.Status == http.StatusNotFound {
					return fmt.Errorf("challenge inexistente o ya consumido")
				}
				return err
			}
			p, _ := json.MarshalIndent(lr, "", "  ")
			fmt.Println(string(p))
			return nil
		},
	}
	challengeGetCmd.Flags().StringVar(&getChallenge, "challenge", "", "Login challenge a consultar")

	var rejChallenge, rejReason string
	challengeRejectCmd := &cobra.Command{
		Use:   "reject",
		Short: "Rechaza un login challenge trabado (lo consume)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if rejChallenge == "" {
				return fmt.Errorf("--challenge es requerido")
			}
			admin := hydra.New(adminURL)
			cr, err := admin.RejectLoginRequest(context.Background(), rejChallenge, hydra.RejectLoginInput{
				Error:            "login_aborted",
				ErrorDescription: rejReason,
			})
			if err != nil {
				return err
			}
			fmt.Println(cr.RedirectTo)
			return nil
		},
	}
	challengeRejectCmd.Flags().StringVar(&rejChallenge, "challenge", "", "Login challenge a rechazar")
	challengeRejectCmd.Flags().StringVar(&rejReason, "reason", "rechazado por operaciones", "Descripción del rechazo")

	challengeCmd.AddCommand(challengeGetCmd)
	challengeCmd.AddCommand(challengeRejectCmd)

	root.AddCommand(pingCmd)
	root.AddCommand(readyCmd)
	root.AddCommand(challengeCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
