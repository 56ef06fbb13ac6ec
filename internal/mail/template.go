package mail

import "fmt"

// Template wraps a notification body in the shared HTML shell.
func Template(title, body string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F5F6F8; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; box-shadow: 0 4px 15px rgba(0,0,0,0.05); }
			.header { background-color: #1F2A44; padding: 24px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 20px; letter-spacing: 1px; }
			.content { padding: 32px 28px; color: #1F2A44; line-height: 1.6; }
			.content h2 { color: #1F2A44; margin-top: 0; }
			.footer { background-color: #F5F6F8; padding: 16px; text-align: center; font-size: 12px; color: #666666; border-top: 1px solid #E0E0E0; }
			.info-box { background: #EDF2FB; padding: 14px; border-radius: 4px; border-left: 4px solid #3D6DEB; margin: 18px 0; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header">
				<h1>HELPDESK</h1>
			</div>
			<div class="content">
				<h2>%s</h2>
				%s
			</div>
			<div class="footer">
				This is an automated notification. Reply to the ticket from the console.
			</div>
		</div>
	</body>
	</html>
	`, title, body)
}
