package email

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"boutique/internal/checkout"
	"boutique/internal/models"
)

type confirmationLine struct {
	Name     string
	Quantity int
	Total    string
}

type confirmation struct {
	Firstname string
	OrderID   int
	HasDetail bool
	Lines     []confirmationLine
	Address   models.Address
	Carrier   string
	Subtotal  string
	Tax       string
	Shipping  string
	Total     string
}

func euros(v interface{ StringFixed(int32) string }) string {
	return strings.Replace(v.StringFixed(2), ".", ",", 1) + " €"
}

func newConfirmation(user *models.User, orderID int, summary *checkout.Summary) confirmation {
	data := confirmation{Firstname: user.Firstname, OrderID: orderID}
	if summary == nil {
		return data
	}

	data.HasDetail = true
	for _, item := range summary.Items {
		data.Lines = append(data.Lines, confirmationLine{
			Name:     item.Product.Name,
			Quantity: item.Quantity,
			Total:    euros(item.LineTotalWithTax()),
		})
	}
	data.Address = summary.Address
	data.Carrier = summary.Carrier.Name
	data.Subtotal = euros(summary.Subtotal)
	data.Tax = euros(summary.Tax)
	data.Shipping = euros(summary.Shipping)
	data.Total = euros(summary.Total)
	return data
}

var confirmationHTML = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Confirmation de commande</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            line-height: 1.6;
            color: #222;
            max-width: 600px;
            margin: 0 auto;
            padding: 20px;
            background-color: #faf7f5;
        }
        .container {
            background-color: white;
            padding: 40px;
            border-radius: 12px;
        }
        .logo {
            font-size: 28px;
            letter-spacing: 4px;
            text-align: center;
            margin-bottom: 30px;
        }
        table {
            width: 100%;
            border-collapse: collapse;
        }
        td {
            padding: 6px 0;
            border-bottom: 1px solid #eee;
        }
        .amount {
            text-align: right;
        }
        .total td {
            font-weight: bold;
            border-bottom: none;
        }
        .footer {
            margin-top: 30px;
            font-size: 13px;
            color: #777;
            text-align: center;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="logo">BOUTIQUE</div>
        <p>Bonjour {{.Firstname}},</p>
        <p>Merci pour votre achat ! Votre commande <strong>n°{{.OrderID}}</strong> est confirmée et sera préparée très prochainement.</p>
        {{if .HasDetail}}
        <table>
            {{range .Lines}}
            <tr><td>{{.Name}} × {{.Quantity}}</td><td class="amount">{{.Total}}</td></tr>
            {{end}}
            <tr><td>Sous-total HT</td><td class="amount">{{.Subtotal}}</td></tr>
            <tr><td>TVA</td><td class="amount">{{.Tax}}</td></tr>
            <tr><td>Livraison ({{.Carrier}})</td><td class="amount">{{.Shipping}}</td></tr>
            <tr class="total"><td>Total</td><td class="amount">{{.Total}}</td></tr>
        </table>
        <p>Livraison à :<br>
            {{.Address.Firstname}} {{.Address.Lastname}}<br>
            {{.Address.Address}}<br>
            {{.Address.Postal}} {{.Address.City}}, {{.Address.Country}}
        </p>
        {{end}}
        <div class="footer">Vous pouvez suivre votre commande depuis votre espace client.</div>
    </div>
</body>
</html>`))

func renderConfirmationHTML(data confirmation) (string, error) {
	var buf bytes.Buffer
	if err := confirmationHTML.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render order confirmation: %w", err)
	}
	return buf.String(), nil
}

func renderConfirmationText(data confirmation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Bonjour %s,\n\n", data.Firstname)
	fmt.Fprintf(&b, "Merci pour votre achat ! Votre commande n°%d est confirmée.\n", data.OrderID)

	if data.HasDetail {
		b.WriteString("\n")
		for _, l := range data.Lines {
			fmt.Fprintf(&b, "- %s × %d : %s\n", l.Name, l.Quantity, l.Total)
		}
		fmt.Fprintf(&b, "\nSous-total HT : %s\n", data.Subtotal)
		fmt.Fprintf(&b, "TVA : %s\n", data.Tax)
		fmt.Fprintf(&b, "Livraison (%s) : %s\n", data.Carrier, data.Shipping)
		fmt.Fprintf(&b, "Total : %s\n", data.Total)
		fmt.Fprintf(&b, "\nLivraison à : %s %s, %s, %s %s, %s\n",
			data.Address.Firstname, data.Address.Lastname, data.Address.Address,
			data.Address.Postal, data.Address.City, data.Address.Country)
	}

	b.WriteString("\nVous pouvez suivre votre commande depuis votre espace client.\n")
	return b.String()
}
