package httpd

// formPage is the minimal web UI served on GET: a form that posts the room
// and message straight back to this daemon.
const formPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Pok'em</title>
<script>
  async function submitForm(event) {
    event.preventDefault();

    const successMessage = document.getElementById('success-message');
    const errorMessage = document.getElementById('error-message');

    successMessage.style.display = 'none';
    errorMessage.style.display = 'none';

    var room = document.getElementById('room').value;
    var message = document.getElementById('message').value;

    if (!room || !message) {
      errorMessage.innerHTML = 'Please fill in both fields.';
      errorMessage.style.display = 'block';
      return;
    }

    var actionURL = '/' + encodeURIComponent(room);

    try {
      const response = await fetch(actionURL, {
        method: 'POST',
        headers: {
          'Content-Type': 'text/plain',
        },
        body: message
      });

      if (response.ok) {
        successMessage.innerHTML = "Message sent successfully!";
        successMessage.style.display = 'block';
      } else {
        errorMessage.innerHTML = "Failed to send message. Status: " + response.status;
        errorMessage.style.display = 'block';
      }
    } catch (error) {
      errorMessage.innerHTML = "Error sending message: " + error.message;
      errorMessage.style.display = 'block';
    }
  }

  // Decode the URL and use that to set the Room Name.
  function setInitialRoomValue() {
    const url = window.location.href;
    const roomField = document.getElementById('room');
    const roomValue = url.substring(url.lastIndexOf('/') + 1);

    roomField.value = decodeURIComponent(roomValue);
  }

  window.onload = setInitialRoomValue;
</script>
</head>
<body>

<h2>Pok'em!</h2>
<h3>Provide the Room and Message and we'll Poke Them for you.</h3>

<form onsubmit="submitForm(event);">
  <label for="room">Room:</label><br>
  <input type="text" id="room" size="30" maxlength="256"><br>
  <label for="message">Message:</label><br>
  <textarea id="message" rows="4" cols="50" maxlength="1024"></textarea><br><br>
  <input type="submit" value="Submit">
</form>

<!-- Feedback messages -->
<div id="success-message" style="color: green; display: none;"></div>
<div id="error-message" style="color: red; display: none;"></div>

</body>
</html>
`
